// Package parser extracts question entries from markdown question lists.
//
// A list is a sequence of blocks, each describing one problem:
//
//	T: Two Sum
//	U: https://leetcode.com/problems/two-sum/
//	D: Easy
//	---
//
// A new T: line or a --- separator ends the current block. Lines following
// a T: line without a prefix continue the title.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"
)

const (
	titlePrefix      = "T:"
	urlPrefix        = "U:"
	difficultyPrefix = "D:"
)

// Entry is one parsed question block. Fields are raw strings; the caller
// decides whether the URL and difficulty are acceptable.
type Entry struct {
	Title      string
	SourceURL  string
	Difficulty string
}

type state int

const (
	seeking state = iota
	readingTitle
	readingURL
	readingDifficulty
)

// ParseFile reads a file from the given path and extracts all entries.
func ParseFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all entries.
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var entries []Entry
	var current Entry
	var block []string
	currentState := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(block, "\n"))
		switch currentState {
		case readingTitle:
			current.Title = content
		case readingURL:
			current.SourceURL = content
		case readingDifficulty:
			current.Difficulty = content
		}
		block = nil
	}

	finishEntry := func() {
		flushBlock()
		if current.Title != "" {
			entries = append(entries, current)
		}
		current = Entry{}
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == "---" {
			finishEntry()
			continue
		}

		isT := strings.HasPrefix(line, titlePrefix)
		isU := strings.HasPrefix(line, urlPrefix)
		isD := strings.HasPrefix(line, difficultyPrefix)

		if isT || isU || isD {
			if isT && currentState != seeking {
				// A new title always starts a new entry.
				finishEntry()
			} else {
				flushBlock()
			}

			var content string
			switch {
			case isT:
				currentState = readingTitle
				content = line[len(titlePrefix):]
			case isU:
				currentState = readingURL
				content = line[len(urlPrefix):]
			case isD:
				currentState = readingDifficulty
				content = line[len(difficultyPrefix):]
			}
			block = append(block, strings.TrimPrefix(content, " "))
		} else if currentState == readingTitle {
			// Only titles may span multiple lines.
			block = append(block, line)
		}
	}

	finishEntry() // Finish the very last entry in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
