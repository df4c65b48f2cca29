package format

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/stevedore-dev/stevedore/internal/diagnosis"
)

// JUnit renders the report as a JUnit XML test suite per file, so CI systems
// can surface findings as test failures.
type JUnit struct{}

type junitTestSuites struct {
	XMLName  xml.Name         `xml:"testsuites"`
	Tests    int              `xml:"tests,attr"`
	Failures int              `xml:"failures,attr"`
	Errors   int              `xml:"errors,attr"`
	Suites   []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Errors   int             `xml:"errors,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	Error     *junitFailure `xml:"error,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

func (*JUnit) Format(w io.Writer, items []Item) error {
	byFile := make(map[string][]Item)
	var order []string
	for _, item := range items {
		if _, seen := byFile[item.File]; !seen {
			order = append(order, item.File)
		}
		byFile[item.File] = append(byFile[item.File], item)
	}

	suites := junitTestSuites{}
	for _, file := range order {
		suite := junitTestSuite{Name: file}
		for _, item := range byFile[file] {
			failure := &junitFailure{
				Message: item.Summary,
				Type:    item.Code,
				Body:    fmt.Sprintf("%s:%d:%d: %s", item.File, item.Line, item.Column, item.Msg),
			}
			tc := junitTestCase{
				Name:      fmt.Sprintf("%s %s", item.Code, item.Loc.String()),
				ClassName: file,
			}
			if item.Severity == diagnosis.SeverityFailure {
				tc.Error = failure
				suite.Errors++
			} else {
				tc.Failure = failure
				suite.Failures++
			}
			suite.Tests++
			suite.Cases = append(suite.Cases, tc)
		}
		suites.Tests += suite.Tests
		suites.Failures += suite.Failures
		suites.Errors += suite.Errors
		suites.Suites = append(suites.Suites, suite)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(suites); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
