package parser

// workflowDoc is the YAML document shape this package unmarshals, a
// straightforward serialization of workflow.AST's fields.
type workflowDoc struct {
	Name     string        `yaml:"name"`
	Sections []sectionDoc  `yaml:"sections"`
}

type sectionDoc struct {
	Name         string          `yaml:"name"`
	Index        int             `yaml:"index,omitempty"`
	Description  string          `yaml:"description,omitempty"`
	Hidden       bool            `yaml:"hidden,omitempty"`
	AllowFailure bool            `yaml:"allowFailure,omitempty"`
	Provides     string          `yaml:"provides,omitempty"`
	Shared       []string        `yaml:"shared,omitempty"`
	Depends      []dependsRefDoc `yaml:"depends,omitempty"`
	Input        *inputDoc       `yaml:"input,omitempty"`
	Output       *outputDoc      `yaml:"output,omitempty"`
	Actions      []actionDoc     `yaml:"actions,omitempty"`
}

type dependsRefDoc struct {
	Target   string `yaml:"target,omitempty"`
	Step     string `yaml:"step,omitempty"`
	Variable string `yaml:"variable,omitempty"`
}

type stepRefDoc struct {
	Name     string       `yaml:"name,omitempty"`
	RelIndex *int         `yaml:"relIndex,omitempty"`
	List     []stepRefDoc `yaml:"list,omitempty"`
}

type groupByDoc struct {
	Kind     string `yaml:"kind,omitempty"`
	N        int    `yaml:"n,omitempty"`
	Explicit bool   `yaml:"explicit,omitempty"`
}

type sourceTermDoc struct {
	Path        string      `yaml:"path,omitempty"`
	Glob        string      `yaml:"glob,omitempty"`
	Dynamic     bool        `yaml:"dynamic,omitempty"`
	OutputFrom  *stepRefDoc `yaml:"outputFrom,omitempty"`
	NamedOutput *stepRefDoc `yaml:"namedOutput,omitempty"`
	Label       string      `yaml:"label,omitempty"`
	Alias       string      `yaml:"alias,omitempty"`
	GroupBy     *groupByDoc `yaml:"groupBy,omitempty"`
}

type varListDoc struct {
	Name   string        `yaml:"name"`
	Values []interface{} `yaml:"values"`
}

type forEachAxisDoc struct {
	Keys   []string      `yaml:"keys"`
	Values []interface{} `yaml:"values"`
}

type inputDoc struct {
	Sources    []sourceTermDoc  `yaml:"sources,omitempty"`
	GroupBy    *groupByDoc      `yaml:"groupBy,omitempty"`
	PairedWith []varListDoc     `yaml:"pairedWith,omitempty"`
	GroupWith  []varListDoc     `yaml:"groupWith,omitempty"`
	ForEach    []forEachAxisDoc `yaml:"forEach,omitempty"`
	Concurrent *bool            `yaml:"concurrent,omitempty"`
}

type labeledOutputDoc struct {
	Label     string   `yaml:"label"`
	Templates []string `yaml:"templates"`
}

type outputDoc struct {
	Templates []string           `yaml:"templates,omitempty"`
	Labeled   []labeledOutputDoc `yaml:"labeled,omitempty"`
}

type actionDoc struct {
	Text        string `yaml:"text"`
	AllowError  bool   `yaml:"allowError,omitempty"`
	Interpreter string `yaml:"interpreter,omitempty"`
}
