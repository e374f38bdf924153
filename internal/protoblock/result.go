package protoblock

// Result is the structured verification outcome a trusty agent
// produces for one protoblock attempt. Results are owned by the
// ProtoBlock once attached (see AttachResult) and are read-only from
// that point on.
type Result struct {
	Success     bool                   `json:"success"`
	AgentType   string                 `json:"agent_type"`
	Summary     string                 `json:"summary"`
	Components  []Component            `json:"components,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	FailureType string                 `json:"failure_type,omitempty"`
}

// ComponentKind discriminates the sub-result variants a Result may
// carry, matching the §3 taxonomy.
type ComponentKind string

const (
	ComponentGrade      ComponentKind = "grade"
	ComponentReport     ComponentKind = "report"
	ComponentScreenshot ComponentKind = "screenshot"
	ComponentComparison ComponentKind = "comparison"
	ComponentMetric     ComponentKind = "metric"
	ComponentError      ComponentKind = "error"
)

// Component is one typed sub-result within a Result. Exactly one of
// the payload fields is populated, matching Kind.
type Component struct {
	Kind ComponentKind `json:"kind"`

	Grade      *GradeComponent      `json:"grade,omitempty"`
	Report     *ReportComponent     `json:"report,omitempty"`
	Screenshot *ScreenshotComponent `json:"screenshot,omitempty"`
	Comparison *ComparisonComponent `json:"comparison,omitempty"`
	Metric     *MetricComponent     `json:"metric,omitempty"`
	Error      *ErrorComponent      `json:"error,omitempty"`
}

// GradeComponent is a letter grade, numeric score, or star rating,
// e.g. {value: "A".."F" | numeric, scale, description}.
type GradeComponent struct {
	Value       string `json:"value"`
	Scale       string `json:"scale"` // "letter", "numeric", "stars"
	Description string `json:"description,omitempty"`
}

// ReportComponent is a free-form titled report, typically the full
// LLM analysis text behind a grade.
type ReportComponent struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// ScreenshotComponent references a captured image.
type ScreenshotComponent struct {
	Path        string `json:"path"`
	Description string `json:"description,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

// ComparisonComponent references a before/after (and optionally
// reference) pair of captured images.
type ComparisonComponent struct {
	BeforePath    string `json:"before_path"`
	AfterPath     string `json:"after_path"`
	ReferencePath string `json:"reference_path,omitempty"`
	Description   string `json:"description,omitempty"`
}

// MetricComponent is a named measurement with an optional pass
// threshold and direction.
type MetricComponent struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	HasThreshold bool `json:"has_threshold,omitempty"`
	Direction string  `json:"direction,omitempty"` // "higher" or "lower"
}

// ErrorComponent records an exception the agent caught internally —
// per §7, trusty-agent exceptions never propagate out of Check; they
// are converted to this component instead.
type ErrorComponent struct {
	Message    string `json:"message"`
	ErrorType  string `json:"error_type"`
	Stacktrace string `json:"stacktrace,omitempty"`
}

// NewGrade builds a Result component for a letter/numeric grade.
func NewGrade(value, scale, description string) Component {
	return Component{Kind: ComponentGrade, Grade: &GradeComponent{Value: value, Scale: scale, Description: description}}
}

// NewReport builds a Result component for a titled free-form report.
func NewReport(title, text string) Component {
	return Component{Kind: ComponentReport, Report: &ReportComponent{Title: title, Text: text}}
}

// NewError builds a Result component wrapping a caught error.
func NewError(message, errorType, stacktrace string) Component {
	return Component{Kind: ComponentError, Error: &ErrorComponent{Message: message, ErrorType: errorType, Stacktrace: stacktrace}}
}

// NewMetric builds a Result component for a named measurement.
func NewMetric(name string, value float64, unit string, threshold float64, hasThreshold bool, direction string) Component {
	return Component{Kind: ComponentMetric, Metric: &MetricComponent{Name: name, Value: value, Unit: unit, Threshold: threshold, HasThreshold: hasThreshold, Direction: direction}}
}

// NewComparison builds a Result component for a before/after/reference
// image triple.
func NewComparison(before, after, reference, description string) Component {
	return Component{Kind: ComponentComparison, Comparison: &ComparisonComponent{BeforePath: before, AfterPath: after, ReferencePath: reference, Description: description}}
}

// NewScreenshot builds a Result component for a single captured image.
func NewScreenshot(path, description string, width, height int) Component {
	return Component{Kind: ComponentScreenshot, Screenshot: &ScreenshotComponent{Path: path, Description: description, Width: width, Height: height}}
}
