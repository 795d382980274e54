package subtitle_test

import (
	"errors"
	"testing"
	"time"

	"scribe/internal/services"
	"scribe/internal/subtitle"
)

func sampleEntries() []subtitle.Entry {
	return []subtitle.Entry{
		{Start: 2 * time.Second, End: 5 * time.Second, Text: "hello there"},
		{Start: 6500 * time.Millisecond, End: 9 * time.Second, Text: "second line"},
	}
}

func TestRenderSRT(t *testing.T) {
	got, err := subtitle.Render(subtitle.FormatSRT, sampleEntries())
	if err != nil {
		t.Fatal(err)
	}
	want := "1\n00:00:02,000 --> 00:00:05,000\nhello there\n\n" +
		"2\n00:00:06,500 --> 00:00:09,000\nsecond line\n\n"
	if got != want {
		t.Fatalf("srt output:\n%q\nwant:\n%q", got, want)
	}
}

func TestRenderVTT(t *testing.T) {
	got, err := subtitle.Render(subtitle.FormatVTT, sampleEntries())
	if err != nil {
		t.Fatal(err)
	}
	want := "WEBVTT\n\n" +
		"1\n00:00:02.000 --> 00:00:05.000\nhello there\n\n" +
		"2\n00:00:06.500 --> 00:00:09.000\nsecond line\n\n"
	if got != want {
		t.Fatalf("vtt output:\n%q\nwant:\n%q", got, want)
	}
}

func TestRenderLRC(t *testing.T) {
	entries := []subtitle.Entry{
		{Start: 2 * time.Second, End: 5 * time.Second, Text: "hello"},
		{Start: 75250 * time.Millisecond, End: 80 * time.Second, Text: "after a minute"},
	}
	got, err := subtitle.Render(subtitle.FormatLRC, entries)
	if err != nil {
		t.Fatal(err)
	}
	want := "[00:02.00]hello\n[01:15.25]after a minute\n"
	if got != want {
		t.Fatalf("lrc output:\n%q\nwant:\n%q", got, want)
	}
}

func TestRenderTXT(t *testing.T) {
	got, err := subtitle.Render(subtitle.FormatTXT, sampleEntries())
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello there\nsecond line\n" {
		t.Fatalf("txt output: %q", got)
	}
}

func TestRenderOmitsEmptyEntriesAndRenumbers(t *testing.T) {
	entries := []subtitle.Entry{
		{Start: 0, End: time.Second, Text: "first"},
		{Start: time.Second, End: 2 * time.Second, Text: "   "},
		{Start: 2 * time.Second, End: 3 * time.Second, Text: ""},
		{Start: 3 * time.Second, End: 4 * time.Second, Text: "last"},
	}
	got, err := subtitle.Render(subtitle.FormatSRT, entries)
	if err != nil {
		t.Fatal(err)
	}
	want := "1\n00:00:00,000 --> 00:00:01,000\nfirst\n\n" +
		"2\n00:00:03,000 --> 00:00:04,000\nlast\n\n"
	if got != want {
		t.Fatalf("srt output:\n%q\nwant:\n%q", got, want)
	}
}

func TestRenderLongTimestamps(t *testing.T) {
	entries := []subtitle.Entry{
		{Start: time.Hour + 2*time.Minute + 3*time.Second + 45*time.Millisecond, End: 2 * time.Hour, Text: "late"},
	}
	got, err := subtitle.Render(subtitle.FormatSRT, entries)
	if err != nil {
		t.Fatal(err)
	}
	want := "1\n01:02:03,045 --> 02:00:00,000\nlate\n\n"
	if got != want {
		t.Fatalf("srt output: %q", got)
	}
}

func TestRenderDeterministic(t *testing.T) {
	entries := sampleEntries()
	for _, format := range subtitle.AllFormats() {
		first, err := subtitle.Render(format, entries)
		if err != nil {
			t.Fatal(err)
		}
		second, err := subtitle.Render(format, entries)
		if err != nil {
			t.Fatal(err)
		}
		if first != second {
			t.Fatalf("%s render not deterministic", format)
		}
	}
}

func TestRenderNoEntries(t *testing.T) {
	got, err := subtitle.Render(subtitle.FormatVTT, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "WEBVTT\n\n" {
		t.Fatalf("empty vtt = %q", got)
	}
	got, err = subtitle.Render(subtitle.FormatSRT, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Fatalf("empty srt = %q", got)
	}
}

func TestParseFormats(t *testing.T) {
	cases := []struct {
		name    string
		in      []string
		want    []subtitle.Format
		wantErr bool
	}{
		{"default", nil, []subtitle.Format{subtitle.FormatSRT}, false},
		{"dedupe preserves order", []string{"vtt", "srt", "vtt"}, []subtitle.Format{subtitle.FormatVTT, subtitle.FormatSRT}, false},
		{"case and space", []string{" SRT "}, []subtitle.Format{subtitle.FormatSRT}, false},
		{"unknown", []string{"ass"}, nil, true},
		{"all blank defaults", []string{"", "  "}, []subtitle.Format{subtitle.FormatSRT}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := subtitle.ParseFormats(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, services.ErrValidation) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}
