package integrity

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/abhisek/qbank/internal/yamldoc"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed bank.schema.json
var bankSchema []byte

const bankSchemaURL = "schema://qbank/bank.schema.json"

// TypeChecker checks the types of the fields Validate only checks for
// presence: category and question text must be strings, correct must be a
// boolean, and so on. It is safe for concurrent use.
type TypeChecker struct {
	schema  *jsonschema.Schema
	printer *message.Printer
}

// NewTypeChecker compiles the embedded question-bank schema.
func NewTypeChecker() (*TypeChecker, error) {
	def, err := jsonschema.UnmarshalJSON(bytes.NewReader(bankSchema))
	if err != nil {
		return nil, fmt.Errorf("parse bank schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(bankSchemaURL, def); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(bankSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile bank schema: %w", err)
	}

	return &TypeChecker{
		schema:  compiled,
		printer: message.NewPrinter(language.English),
	}, nil
}

// Check returns one type-mismatch violation per failing field, ordered by
// location and then message.
func (tc *TypeChecker) Check(doc yamldoc.Value, file string) []Violation {
	if !doc.Present() {
		return nil
	}

	err := tc.schema.Validate(doc.Interface())
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []Violation{{File: file, Rule: RuleTypeMismatch, Message: err.Error()}}
	}

	var out []Violation
	for _, leaf := range leafErrors(ve, nil) {
		ptr := "/" + strings.Join(leaf.InstanceLocation, "/")
		out = append(out, Violation{
			File:     file,
			Location: locationOf(leaf.InstanceLocation),
			Rule:     RuleTypeMismatch,
			Message:  fmt.Sprintf("File %q - at %s: %s", file, ptr, leaf.ErrorKind.LocalizedString(tc.printer)),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Location, out[j].Location
		if a.Question != b.Question {
			return a.Question < b.Question
		}
		if a.Answer != b.Answer {
			return a.Answer < b.Answer
		}
		return out[i].Message < out[j].Message
	})
	return out
}

func leafErrors(ve *jsonschema.ValidationError, acc []*jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return append(acc, ve)
	}
	for _, cause := range ve.Causes {
		acc = leafErrors(cause, acc)
	}
	return acc
}

// locationOf maps an instance path such as [questions 0 answers 1] to
// 1-based question and answer indexes.
func locationOf(path []string) Location {
	var loc Location
	for i := 0; i+1 < len(path); i++ {
		n, err := strconv.Atoi(path[i+1])
		if err != nil {
			continue
		}
		switch {
		case path[i] == keyQuestions && i == 0:
			loc.Question = n + 1
		case path[i] == keyAnswers && loc.Question > 0:
			loc.Answer = n + 1
		}
	}
	return loc
}
