// Package enml derives the searchable projections of note content: plain text,
// a normalized word list and the to-do and encryption markers.
package enml

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Result holds the projections extracted from one ENML document.
type Result struct {
	PlainText         string
	Words             []string
	HasFinishedToDo   bool
	HasUnfinishedToDo bool
	HasEncryption     bool
}

// Elements after which a line break is implied, so words of adjacent blocks
// do not run together.
var blockElements = map[string]struct{}{
	"br": {}, "div": {}, "p": {}, "li": {}, "ul": {}, "ol": {}, "tr": {}, "td": {}, "th": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {}, "hr": {}, "blockquote": {},
	"pre": {}, "table": {}, "en-note": {}, "en-todo": {}, "en-media": {},
}

// Parse extracts plain text, words and markers from ENML. Text inside
// en-crypt elements is never indexed.
func Parse(content string) (*Result, error) {
	res := &Result{}
	z := html.NewTokenizer(strings.NewReader(content))

	var b strings.Builder
	cryptDepth := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				res.PlainText = collapseLines(b.String())
				res.Words = Words(res.PlainText)
				return res, nil
			}
			return nil, fmt.Errorf("enml: tokenize: %w", z.Err())

		case html.TextToken:
			if cryptDepth == 0 {
				b.Write(z.Text())
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "en-todo":
				if todoChecked(z, hasAttr) {
					res.HasFinishedToDo = true
				} else {
					res.HasUnfinishedToDo = true
				}
			case "en-crypt":
				res.HasEncryption = true
				if tt == html.StartTagToken {
					cryptDepth++
				}
			}
			if _, ok := blockElements[string(name)]; ok {
				b.WriteByte('\n')
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == "en-crypt" && cryptDepth > 0 {
				cryptDepth--
			}
			if _, ok := blockElements[string(name)]; ok {
				b.WriteByte('\n')
			}
		}
	}
}

func todoChecked(z *html.Tokenizer, hasAttr bool) bool {
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		if string(key) == "checked" {
			return strings.EqualFold(string(val), "true")
		}
	}
	return false
}

// collapseLines trims every line and drops empty ones.
func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
