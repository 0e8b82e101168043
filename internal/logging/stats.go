package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"regexp"
	"strings"
)

// Stats is a derived view over the log file. It is recomputed from disk on
// every call (O(file size)), not maintained as a running counter.
type Stats struct {
	TotalEntries int64            `json:"totalEntries"`
	ByLevel      map[string]int64 `json:"byLevel"`
	FileSize     int64            `json:"fileSize"`
}

var (
	ansiPattern      = regexp.MustCompile("\x1b\\[[0-9;]*m")
	textLevelPattern = regexp.MustCompile(`^\[[^\]]+\] \[(DEBUG|INFO|WARN|ERROR)\]`)
)

// Stats re-parses the configured log file in the configured format. When no
// file is configured or it does not exist yet, all counts are zero.
func (l *Logger) Stats() Stats {
	stats := Stats{ByLevel: map[string]int64{"debug": 0, "info": 0, "warn": 0, "error": 0}}

	l.sink.mu.Lock()
	path := l.sink.filePath
	format := l.sink.format
	l.sink.mu.Unlock()

	if path == "" {
		return stats
	}

	info, err := os.Stat(path)
	if err != nil {
		return stats
	}
	stats.FileSize = info.Size()

	file, err := os.Open(path)
	if err != nil {
		return stats
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		level := ""
		if format == "json" {
			var entry struct {
				Level string `json:"level"`
			}
			if err := json.Unmarshal([]byte(line), &entry); err != nil {
				continue
			}
			level = entry.Level
		} else {
			// Continuation lines (Data:/Error:/Stack:) are not entries.
			match := textLevelPattern.FindStringSubmatch(ansiPattern.ReplaceAllString(line, ""))
			if match == nil {
				continue
			}
			level = strings.ToLower(match[1])
		}

		if _, known := stats.ByLevel[level]; known {
			stats.TotalEntries++
			stats.ByLevel[level]++
		}
	}

	return stats
}
