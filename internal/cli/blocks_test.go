package cli

import (
	"strings"
	"testing"

	"github.com/aidanlsb/discourse/internal/blocks"
	"github.com/aidanlsb/discourse/internal/query"
	"github.com/aidanlsb/discourse/internal/vocab"
)

func TestOutlinePages(t *testing.T) {
	pages := []blocks.Page{
		{Title: "October 19th, 2026", Children: []blocks.Block{
			{UID: "a", Text: "Supported By", Children: []blocks.Block{
				{UID: "b", Text: "[[[[EVD]] - Rayleigh scattering]]"},
			}},
		}},
		{Title: "[[CLM]] - Sky is blue"},
	}

	got := outlinePages(pages)
	want := "## October 19th, 2026\n\n- Supported By\n  - [[[[EVD]] - Rayleigh scattering]]\n\n## [[CLM]] - Sky is blue\n\n"
	if got != want {
		t.Errorf("outlinePages =\n%q\nwant\n%q", got, want)
	}
	if n := countBlocks(pages); n != 2 {
		t.Errorf("countBlocks = %d, want 2", n)
	}
}

func TestTranslatorEntries(t *testing.T) {
	reg := query.NewRegistry(vocab.Merge(vocab.Defaults(), vocab.Starter()))

	all := translatorEntries(reg, "", false)
	if len(all) != len(reg.Labels()) {
		t.Fatalf("got %d entries, want %d", len(all), len(reg.Labels()))
	}

	informed := translatorEntries(reg, "informed", false)
	if len(informed) != 1 || informed[0].Label != "Informed By" {
		t.Fatalf("filtered entries = %+v", informed)
	}
	if informed[0].Options != nil {
		t.Error("options should be omitted unless requested")
	}

	for _, e := range translatorEntries(reg, "is a", true) {
		if strings.EqualFold(e.Label, "is a") && len(e.Options) == 0 {
			t.Error("is a should suggest node types")
		}
	}
}
