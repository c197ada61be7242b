package engine

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/opsmesh/opsmesh/pkg/envelope"
)

// binarySampleSize is how many leading bytes are sampled to decide whether a
// file is text or binary.
const binarySampleSize = 512

// Match is a single grep hit. Column and EndColumn are 1-indexed byte
// offsets into Text, half-open on the end, so Text[Column-1:EndColumn-1]
// equals Match.
type Match struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndColumn int    `json:"end_column"`
	Text      string `json:"text"`
	Match     string `json:"match"`
	Pattern   string `json:"pattern"`
}

// SearchResult is the grep result payload.
type SearchResult struct {
	Pattern       string  `json:"pattern"`
	Path          string  `json:"path"`
	Recursive     bool    `json:"recursive"`
	Matches       []Match `json:"matches"`
	TotalMatches  int     `json:"total_matches"`
	FilesSearched int     `json:"files_searched"`
}

// SearchEngine implements regex grep over a single file or a directory tree.
type SearchEngine struct {
	// MaxDepth bounds recursive directory traversal (default 10).
	MaxDepth int
}

// NewSearchEngine constructs a SearchEngine with the given max recursion depth.
func NewSearchEngine(maxDepth int) *SearchEngine {
	if maxDepth <= 0 {
		maxDepth = 10
	}
	return &SearchEngine{MaxDepth: maxDepth}
}

// Grep searches path (a file or directory) for pattern.
func (e *SearchEngine) Grep(path, pattern string, caseSensitive, recursive bool) (*SearchResult, error) {
	re, err := compilePattern(pattern, caseSensitive)
	if err != nil {
		return nil, envelope.NewOpError(envelope.ErrInvalidPattern, fmt.Sprintf("invalid regular expression: %s", pattern))
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, envelope.NewOpError(envelope.ErrPathNotFound, fmt.Sprintf("path not found: %s", path))
		}
		return nil, envelope.NewOpError(envelope.ErrIOError, err.Error())
	}

	result := &SearchResult{Pattern: pattern, Path: path, Recursive: recursive}

	if !info.IsDir() {
		matches, err := e.searchFile(path, re)
		if err != nil {
			return nil, err
		}
		result.Matches = matches
		result.FilesSearched = 1
		result.TotalMatches = len(matches)
		return result, nil
	}

	var matches []Match
	var opErr *envelope.OpError
	filesSearched := 0
	if recursive {
		matches, filesSearched, opErr = e.searchDirectoryRecursive(path, re, 0)
	} else {
		matches, filesSearched, opErr = e.searchDirectoryFlat(path, re)
	}
	if opErr != nil {
		return nil, opErr
	}
	result.Matches = matches
	result.FilesSearched = filesSearched
	result.TotalMatches = len(matches)
	return result, nil
}

func compilePattern(pattern string, caseSensitive bool) (*regexp.Regexp, error) {
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

// searchFile scans a single file line by line, recording every match on
// every line (a line with two hits contributes two Match entries, ordered
// by column).
func (e *SearchEngine) searchFile(path string, re *regexp.Regexp) ([]Match, *envelope.OpError) {
	isText, err := isTextFile(path)
	if err != nil {
		return nil, envelope.NewOpError(envelope.ErrIOError, err.Error())
	}
	if !isText {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, envelope.NewOpError(envelope.ErrIOError, err.Error())
	}
	defer f.Close()

	var matches []Match
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		for _, loc := range re.FindAllStringIndex(line, -1) {
			matches = append(matches, Match{
				File:      path,
				Line:      lineNum,
				Column:    loc[0] + 1,
				EndColumn: loc[1] + 1,
				Text:      line,
				Match:     line[loc[0]:loc[1]],
				Pattern:   re.String(),
			})
		}
	}
	return matches, nil
}

// searchDirectoryFlat searches only the immediate children of dir
// (non-recursive mode), skipping subdirectories entirely.
func (e *SearchEngine) searchDirectoryFlat(dir string, re *regexp.Regexp) ([]Match, int, *envelope.OpError) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, envelope.NewOpError(envelope.ErrIOError, err.Error())
	}

	var matches []Match
	filesSearched := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		full := filepath.Join(dir, entry.Name())
		m, opErr := e.searchFile(full, re)
		if opErr != nil {
			return nil, 0, opErr
		}
		filesSearched++
		matches = append(matches, m...)
	}
	return matches, filesSearched, nil
}

// searchDirectoryRecursive walks dir up to MaxDepth levels deep. depth ==
// MaxDepth is still searched; only depth > MaxDepth is skipped — an
// inclusive cutoff, not an off-by-one bug.
func (e *SearchEngine) searchDirectoryRecursive(dir string, re *regexp.Regexp, depth int) ([]Match, int, *envelope.OpError) {
	if depth > e.MaxDepth {
		slog.Warn("grep depth limit reached, skipping subtree", "dir", dir, "max_depth", e.MaxDepth)
		return nil, 0, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, envelope.NewOpError(envelope.ErrIOError, err.Error())
	}

	var matches []Match
	filesSearched := 0
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			sub, subCount, opErr := e.searchDirectoryRecursive(full, re, depth+1)
			if opErr != nil {
				return nil, 0, opErr
			}
			matches = append(matches, sub...)
			filesSearched += subCount
			continue
		}
		m, opErr := e.searchFile(full, re)
		if opErr != nil {
			return nil, 0, opErr
		}
		filesSearched++
		matches = append(matches, m...)
	}
	return matches, filesSearched, nil
}

// isTextFile samples up to binarySampleSize leading bytes, classifying the
// file as binary when at least 1% of the sample is a null byte. An empty
// file is always treated as text.
func isTextFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, binarySampleSize)
	n, err := f.Read(buf)
	if n == 0 {
		return true, nil
	}
	if err != nil && n == 0 {
		return false, err
	}
	sample := buf[:n]
	nullCount := bytes.Count(sample, []byte{0})
	return nullCount*100 < len(sample), nil
}
