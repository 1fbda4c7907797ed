// Package ingest parses uploaded salary CSV files.
//
// The accepted format is a header line NAME,SALARY followed by one
// name,salary pair per line. Fields are separated by a literal comma;
// quoting and escaping are not supported. The first blank line ends the
// data.
package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dotsalary/dotsalary/internal/model"
)

// ContentTypeCSV is the only content type the parser accepts.
const ContentTypeCSV = "text/csv"

const (
	headerName   = "NAME"
	headerSalary = "SALARY"
	columnCount  = 2
)

const utf8BOM = "\uFEFF"

// FormatError reports a rejected upload. Message is returned to the caller
// verbatim.
type FormatError struct {
	Message string
}

func (e *FormatError) Error() string {
	return e.Message
}

func formatErrorf(format string, args ...any) *FormatError {
	return &FormatError{Message: fmt.Sprintf(format, args...)}
}

// CheckContentType rejects anything other than text/csv. It does not look
// at the body, so callers can run it before reading the upload.
func CheckContentType(contentType string) error {
	if !strings.EqualFold(contentType, ContentTypeCSV) {
		return &FormatError{Message: "Not a CSV file"}
	}
	return nil
}

// Parse validates an upload and returns its records in input order.
//
// Any validation failure aborts the whole file with a *FormatError; no
// partial result is returned. Errors from r are wrapped and returned as is.
// Lines have no length limit; the request body size is bounded upstream.
func Parse(contentType string, r io.Reader) ([]model.SalaryRecord, error) {
	if err := CheckContentType(contentType); err != nil {
		return nil, err
	}

	br := bufio.NewReader(r)

	header, _, err := readLine(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header = strings.TrimPrefix(header, utf8BOM)

	if err := validateHeader(header); err != nil {
		return nil, err
	}

	records := make([]model.SalaryRecord, 0)
	lineNo := 0
	for {
		line, ok, err := readLine(br)
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", lineNo+1, err)
		}
		if !ok || isBlank(line) {
			break
		}
		lineNo++

		record, err := parseLine(lineNo, line)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}

// readLine returns the next line without its \n or \r\n terminator.
// ok is false once the input is exhausted.
func readLine(br *bufio.Reader) (line string, ok bool, err error) {
	line, err = br.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", false, err
		}
		if line == "" {
			return "", false, nil
		}
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, true, nil
}

func validateHeader(line string) error {
	var columns []string
	if !isBlank(line) {
		columns = splitFields(line)
	}

	if len(columns) != columnCount {
		return formatErrorf("Expect %d columns, but found %d column(s)", columnCount, len(columns))
	}
	if !strings.EqualFold(columns[0], headerName) {
		return &FormatError{Message: "First column should be NAME"}
	}
	if !strings.EqualFold(columns[1], headerSalary) {
		return &FormatError{Message: "Second column should be SALARY"}
	}
	return nil
}

func parseLine(lineNo int, line string) (model.SalaryRecord, error) {
	fields := splitFields(line)
	if len(fields) != columnCount {
		return model.SalaryRecord{}, formatErrorf("%d. Expect line to contain %d fields, but found %d field(s)", lineNo, columnCount, len(fields))
	}

	name := fields[0]
	if isBlank(name) {
		return model.SalaryRecord{}, formatErrorf("%d. NAME field is blank", lineNo)
	}

	salary, err := decimal.NewFromString(fields[1])
	if err != nil {
		return model.SalaryRecord{}, formatErrorf("%d. SALARY field is not numeric", lineNo)
	}

	return model.SalaryRecord{Name: name, Salary: salary}, nil
}

// splitFields splits on every comma and drops trailing empty fields,
// so "a,b," yields two fields and ",," yields none.
func splitFields(line string) []string {
	fields := strings.Split(line, ",")
	n := len(fields)
	for n > 0 && fields[n-1] == "" {
		n--
	}
	return fields[:n]
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
