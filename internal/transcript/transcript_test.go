package transcript

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/chanindex/internal/domain"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:03,500
Hello there

2
00:00:03,500 --> 00:00:05,000
second line
continued
`

const sampleVTT = `WEBVTT

00:00:01.000 --> 00:00:02.250
Bonjour

00:00:02.250 --> 00:00:04.000
le monde
`

const sampleJSON3 = `{"events":[
 {"tStartMs":0,"dDurationMs":1200,"segs":[{"utf8":"first "},{"utf8":"words"}]},
 {"tStartMs":1200,"dDurationMs":10,"segs":[{"utf8":"\n"}]},
 {"tStartMs":1500,"dDurationMs":800},
 {"tStartMs":2000,"dDurationMs":1000,"segs":[{"utf8":"a <b> & c"}]}
]}`

func TestParsers(t *testing.T) {
	tests := []struct {
		format string
		data   string
		want   []domain.Line
	}{
		{"srt", sampleSRT, []domain.Line{
			{Start: 1, Duration: 2.5, Text: "Hello there"},
			{Start: 3.5, Duration: 1.5, Text: "second line continued"},
		}},
		{"vtt", sampleVTT, []domain.Line{
			{Start: 1, Duration: 1.25, Text: "Bonjour"},
			{Start: 2.25, Duration: 1.75, Text: "le monde"},
		}},
		{"json3", sampleJSON3, []domain.Line{
			{Start: 0, Duration: 1.2, Text: "first words"},
			{Start: 2, Duration: 1, Text: "a <b> & c"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			p, err := NewParser(tt.format)
			require.NoError(t, err)
			got, err := p.Parse([]byte(tt.data))
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i].Start, got[i].Start, 1e-9)
				assert.InDelta(t, tt.want[i].Duration, got[i].Duration, 1e-9)
				assert.Equal(t, tt.want[i].Text, got[i].Text)
			}
		})
	}
}

func TestNewParserRejectsUnknownFormat(t *testing.T) {
	_, err := NewParser("ttml")
	assert.Error(t, err)
}

func TestJSON3RejectsGarbage(t *testing.T) {
	p, err := NewParser("json3")
	require.NoError(t, err)
	_, err = p.Parse([]byte("not json"))
	assert.Error(t, err)
}

func TestWriteAndReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcripts", FileName("abc"))
	lines := []domain.Line{{Start: 0.5, Duration: 1.25, Text: "a <b> & c"}}

	require.NoError(t, WriteFile(path, lines))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `[[0.5,1.25,"a <b> & c"]]`, string(raw))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, lines, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestEncodeEmpty(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestText(t *testing.T) {
	assert.Equal(t, "one two", Text([]domain.Line{{Text: "one"}, {Text: "two"}}))
}
