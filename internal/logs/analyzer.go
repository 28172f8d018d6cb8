package logs

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

const timestampLayout = "2006-01-02 15:04:05"

type Alert struct {
	Timestamp      time.Time
	Message        string
	Severity       string
	PatternMatched string
}

type severityPattern struct {
	name    string
	pattern *regexp.Regexp
}

// Analyzer scans log files and raises alerts for lines matching severity
// patterns. Patterns are checked in registration order; the first match
// decides the severity.
type Analyzer struct {
	patterns []severityPattern
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		patterns: []severityPattern{
			{name: "error", pattern: regexp.MustCompile(`ERROR|CRITICAL|FATAL`)},
			{name: "warning", pattern: regexp.MustCompile(`WARNING|WARN`)},
			{name: "info", pattern: regexp.MustCompile(`INFO`)},
		},
	}
}

func (a *Analyzer) AddPattern(name, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	for i, p := range a.patterns {
		if p.name == name {
			a.patterns[i].pattern = re
			return nil
		}
	}
	a.patterns = append(a.patterns, severityPattern{name: name, pattern: re})
	return nil
}

func (a *Analyzer) AnalyzeFile(path string) ([]Alert, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	defer file.Close()

	var alerts []Alert
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if alert := a.ProcessLine(scanner.Text()); alert != nil {
			alerts = append(alerts, *alert)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file %s: %w", path, err)
	}

	return alerts, nil
}

// ProcessLine classifies a single line, returning nil when the line carries
// no timestamp or matches no pattern.
func (a *Analyzer) ProcessLine(line string) *Alert {
	tsStr := timestampPattern.FindString(line)
	if tsStr == "" {
		return nil
	}

	ts, err := time.Parse(timestampLayout, tsStr)
	if err != nil {
		return nil
	}

	for _, p := range a.patterns {
		if p.pattern.MatchString(line) {
			return &Alert{
				Timestamp:      ts,
				Message:        strings.TrimSpace(line),
				Severity:       p.name,
				PatternMatched: p.pattern.String(),
			}
		}
	}

	return nil
}
