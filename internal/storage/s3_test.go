package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReportKey(t *testing.T) {
	at := time.Date(2026, 5, 4, 13, 2, 1, 0, time.FixedZone("CET", 3600))

	assert.Equal(t, "reports/doc-1/estimate-20260504T120201Z.md", ReportKey(" doc-1 ", at))
}

func TestDocumentFromKey(t *testing.T) {
	tests := []struct {
		key    string
		wantID string
		wantOK bool
	}{
		{"reports/doc-1/estimate-20260504T120201Z.md", "doc-1", true},
		{ReportKey("7f1c", time.Now()), "7f1c", true},
		{"reports//estimate-20260504T120201Z.md", "", false},
		{"reports/doc-1/notes.md", "", false},
		{"other/doc-1/estimate-x.md", "", false},
		{"doc-1", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			id, ok := DocumentFromKey(tt.key)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	reports := []ReportObject{
		{Key: ReportKey("doc-1", base)},
		{Key: ReportKey("doc-1", base.Add(48*time.Hour))},
		{Key: ReportKey("doc-1", base.Add(time.Minute))},
	}

	sortNewestFirst(reports)

	assert.Equal(t, ReportKey("doc-1", base.Add(48*time.Hour)), reports[0].Key)
	assert.Equal(t, ReportKey("doc-1", base), reports[2].Key)
}
