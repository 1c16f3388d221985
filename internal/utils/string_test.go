package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmailSubject(t *testing.T) {
	assert.Equal(t, "Weekly digest", NormalizeEmailSubject("Re: Fwd: Weekly digest"))
	assert.Equal(t, "Plan", NormalizeEmailSubject("  FW[2]: Plan "))
	assert.Equal(t, "Report", NormalizeEmailSubject("Report"))
}

func TestTruncateWithEllipsis(t *testing.T) {
	long := strings.Repeat("a", 150)
	got := TruncateWithEllipsis(long, 100)
	assert.Equal(t, 100, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, strings.Repeat("a", 97)+"...", got)

	exact := strings.Repeat("b", 100)
	assert.Equal(t, exact, TruncateWithEllipsis(exact, 100))

	assert.Equal(t, "short", TruncateWithEllipsis("short", 100))
}

func TestTruncateWithEllipsis_MultiByte(t *testing.T) {
	s := strings.Repeat("é", 120)
	got := TruncateWithEllipsis(s, 100)
	assert.Equal(t, 100, utf8.RuneCountInString(got))
}

func TestChunkRunes(t *testing.T) {
	assert.Nil(t, ChunkRunes("", 10))
	assert.Equal(t, []string{"abc", "de"}, ChunkRunes("abcde", 3))
	assert.Equal(t, []string{"abc"}, ChunkRunes("abc", 3))
}

func TestFirstNonEmptyLine(t *testing.T) {
	assert.Equal(t, "hello", FirstNonEmptyLine("\n  \n hello \nworld"))
	assert.Equal(t, "", FirstNonEmptyLine(" \n "))
}

func TestExtractEmailAddress(t *testing.T) {
	assert.Equal(t, "news@example.com", ExtractEmailAddress("Example News <news@example.com>"))
	assert.Equal(t, "plain@example.com", ExtractEmailAddress(" plain@example.com "))
	assert.Equal(t, "example.com", ExtractDomainFromEmail("A <x@Example.com>"))
	assert.Equal(t, "", ExtractDomainFromEmail("not-an-address"))
}

func TestGenerateNanoIDWithPrefix(t *testing.T) {
	id := GenerateNanoIDWithPrefix("mail", 12)
	assert.True(t, strings.HasPrefix(id, "mail_"))
	assert.Len(t, id, len("mail_")+12)
	assert.NotEqual(t, id, GenerateNanoIDWithPrefix("mail", 12))
}
