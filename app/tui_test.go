package app

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"pdf-quickcheck/config"
	"pdf-quickcheck/scan"
)

func loadedModel(t *testing.T, n int) model {
	t.Helper()
	m := newModel(context.Background(), config.Default(), []string{"in"}, newLogger(false))
	results := make([]scan.BatchResult, n)
	for i := range results {
		res, err := scan.Analyze([]byte("%PDF-1.4\n"), "doc.pdf")
		if err != nil {
			t.Fatalf("analyze: %v", err)
		}
		results[i] = scan.BatchResult{Name: "doc.pdf", Result: res}
	}
	next, cmd := m.Update(analysisDoneMsg{results: results, files: n, workers: 1})
	if cmd != nil {
		t.Fatal("finishing the analysis must not start another memory tick loop")
	}
	return next.(model)
}

func TestModelAnalysisDone(t *testing.T) {
	m := loadedModel(t, 2)
	if m.loading || m.totalPages != 2 || m.workers != 1 {
		t.Fatalf("model = loading %v, pages %d, workers %d", m.loading, m.totalPages, m.workers)
	}
}

func TestModelPaging(t *testing.T) {
	tests := []struct {
		name     string
		keys     []tea.KeyMsg
		wantPage int
	}{
		{name: "enter advances", keys: []tea.KeyMsg{{Type: tea.KeyEnter}}, wantPage: 1},
		{name: "enter stops at last page", keys: []tea.KeyMsg{{Type: tea.KeyEnter}, {Type: tea.KeyEnter}, {Type: tea.KeyEnter}}, wantPage: 2},
		{name: "n then p", keys: []tea.KeyMsg{{Type: tea.KeyRunes, Runes: []rune{'n'}}, {Type: tea.KeyRunes, Runes: []rune{'p'}}}, wantPage: 0},
		{name: "end", keys: []tea.KeyMsg{{Type: tea.KeyEnd}}, wantPage: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := loadedModel(t, 3)
			for _, k := range tt.keys {
				next, _ := m.Update(k)
				m = next.(model)
			}
			if m.quitting {
				t.Fatal("paging must not quit")
			}
			if m.currentPage != tt.wantPage {
				t.Fatalf("page = %d, want %d", m.currentPage, tt.wantPage)
			}
		})
	}
}

func TestModelViewShowsKeysWithoutPrompt(t *testing.T) {
	m := loadedModel(t, 1)
	view := m.View()
	if strings.Contains(view, "Continue?") {
		t.Fatal("viewer should not ask to continue")
	}
	if !strings.Contains(view, "e: save JSON") {
		t.Fatalf("footer lacks key help:\n%s", view)
	}
}
