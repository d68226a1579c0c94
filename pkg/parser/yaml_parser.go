package parser

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/sosflow/sosflow/pkg/workflow"
)

// ParseFromFile reads a YAML workflow document from filePath and converts
// it into a workflow.AST.
func ParseFromFile(filePath string) (*workflow.AST, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading workflow file %s", filePath)
	}
	ast, err := Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing workflow file %s", filePath)
	}
	return ast, nil
}

// Parse converts raw YAML bytes into a workflow.AST.
func Parse(raw []byte) (*workflow.AST, error) {
	var doc workflowDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "unmarshalling workflow document")
	}
	return convertAST(&doc)
}
