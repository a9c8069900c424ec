package markdown

import "testing"

// TestTitle_FirstHeading tests that the first top-level heading wins.
func TestTitle_FirstHeading(t *testing.T) {
	input := `Intro paragraph before any heading.

# Getting Started

## Installation

# Appendix
`
	got := NewTitler().Title([]byte(input))
	if got != "Getting Started" {
		t.Errorf("Expected 'Getting Started', got %q", got)
	}
}

// TestTitle_NoH1 tests that documents starting at H2 use that heading.
func TestTitle_NoH1(t *testing.T) {
	input := "## Overview\n\nText.\n\n### Details\n"
	if got := NewTitler().Title([]byte(input)); got != "Overview" {
		t.Errorf("Expected 'Overview', got %q", got)
	}
}

// TestTitle_NoHeadings tests plain prose.
func TestTitle_NoHeadings(t *testing.T) {
	if got := NewTitler().Title([]byte("Just some text.\n")); got != "" {
		t.Errorf("Expected empty title, got %q", got)
	}
}

// TestTitle_FrontMatter tests that a front matter title takes precedence.
func TestTitle_FrontMatter(t *testing.T) {
	input := `---
title: "Chat Model Guide"
weight: 3
---

# Something Else
`
	if got := NewTitler().Title([]byte(input)); got != "Chat Model Guide" {
		t.Errorf("Expected 'Chat Model Guide', got %q", got)
	}
}

// TestTitle_FrontMatterWithoutTitle tests fallback to the body heading.
func TestTitle_FrontMatterWithoutTitle(t *testing.T) {
	input := "---\nweight: 1\n---\n# Body Heading\n"
	if got := NewTitler().Title([]byte(input)); got != "Body Heading" {
		t.Errorf("Expected 'Body Heading', got %q", got)
	}
}
