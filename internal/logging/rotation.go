package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ParseSize parses a "<number><unit>" size string. Units: B, KB, MB, GB.
// A bare number is bytes.
func ParseSize(raw string) (int64, error) {
	value := strings.TrimSpace(strings.ToUpper(raw))
	if value == "" {
		return 0, fmt.Errorf("size is empty")
	}

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(value, "GB"):
		multiplier = 1024 * 1024 * 1024
		value = strings.TrimSuffix(value, "GB")
	case strings.HasSuffix(value, "MB"):
		multiplier = 1024 * 1024
		value = strings.TrimSuffix(value, "MB")
	case strings.HasSuffix(value, "KB"):
		multiplier = 1024
		value = strings.TrimSuffix(value, "KB")
	case strings.HasSuffix(value, "B"):
		value = strings.TrimSuffix(value, "B")
	}

	number, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", raw, err)
	}
	if number <= 0 {
		return 0, fmt.Errorf("size must be positive, got %q", raw)
	}

	return number * multiplier, nil
}

func (s *sink) openFile() error {
	if dir := filepath.Dir(s.filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	file, err := os.OpenFile(s.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	s.file = file
	return nil
}

// appendToFile writes one line, rotating first when the file would exceed the
// configured size. Caller must hold the sink mutex; that lock is what gives
// file writes their ordering guarantee under concurrent callers.
func (s *sink) appendToFile(line string) error {
	info, err := s.file.Stat()
	if err == nil && info.Size()+int64(len(line))+1 > s.maxFileSize {
		if rotateErr := s.rotate(); rotateErr != nil {
			fmt.Fprintf(os.Stderr, "logging: rotation failed: %v\n", rotateErr)
			if s.file == nil {
				if reopenErr := s.openFile(); reopenErr != nil {
					return reopenErr
				}
			}
		}
	}

	_, err = s.file.WriteString(line + "\n")
	return err
}

// rotate shifts file -> file.1 -> file.2 -> ... up to maxFiles, dropping the
// oldest, then reopens a fresh file at the base path.
func (s *sink) rotate() error {
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	s.file = nil

	oldest := fmt.Sprintf("%s.%d", s.filePath, s.maxFiles)
	if _, err := os.Stat(oldest); err == nil {
		if err := os.Remove(oldest); err != nil {
			return fmt.Errorf("failed to remove oldest rotation: %w", err)
		}
	}

	for i := s.maxFiles - 1; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", s.filePath, i)
		to := fmt.Sprintf("%s.%d", s.filePath, i+1)
		if _, err := os.Stat(from); err == nil {
			if err := os.Rename(from, to); err != nil {
				return fmt.Errorf("failed to shift rotation %s: %w", from, err)
			}
		}
	}

	if _, err := os.Stat(s.filePath); err == nil {
		if err := os.Rename(s.filePath, s.filePath+".1"); err != nil {
			return fmt.Errorf("failed to rotate current file: %w", err)
		}
	}

	return s.openFile()
}
