package logs

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
)

type Logger interface {
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

var timestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`)

// Reader reads log files and searches them for patterns.
type Reader struct {
	path   string
	logger Logger
}

func NewReader(path string, logger Logger) *Reader {
	return &Reader{path: path, logger: logger}
}

// ReadLines returns all lines of the log file. A missing file is logged and
// yields no lines rather than an error.
func (r *Reader) ReadLines() ([]string, error) {
	file, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Warnf("Log file not found: %s", r.path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open log file %s: %w", r.path, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file %s: %w", r.path, err)
	}

	return lines, nil
}

type PatternMatch struct {
	Line      string
	Timestamp string
	Match     string
}

// FindPatterns returns every line matching pattern, with the line's
// timestamp when one is present.
func (r *Reader) FindPatterns(pattern string) ([]PatternMatch, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	lines, err := r.ReadLines()
	if err != nil {
		return nil, err
	}

	var matches []PatternMatch
	for _, line := range lines {
		m := re.FindString(line)
		if m == "" {
			continue
		}
		matches = append(matches, PatternMatch{
			Line:      line,
			Timestamp: timestampPattern.FindString(line),
			Match:     m,
		})
	}

	return matches, nil
}
