package utils

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReceiptCode(t *testing.T) {
	code := GenerateReceiptCode()

	pattern := regexp.MustCompile(`^RCP-\d{8}-\d{4}$`)
	assert.Regexp(t, pattern, code)
	assert.Contains(t, code, time.Now().Format("20060102"))
}

func TestGenerateUUIDIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateUUID()
		require.False(t, seen[id], "duplicate uuid %s", id)
		seen[id] = true
	}
}

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last@example.co.id",
		"user+tag@sub.example.org",
	}
	invalid := []string{
		"",
		"plainaddress",
		"@example.com",
		"user@",
		"user@domain",
	}

	for _, email := range valid {
		assert.True(t, ValidateEmail(email), "expected valid: %s", email)
	}
	for _, email := range invalid {
		assert.False(t, ValidateEmail(email), "expected invalid: %s", email)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.True(t, ValidatePassword("Sup3rSecret"))
	assert.False(t, ValidatePassword("short1A"))
	assert.False(t, ValidatePassword("nouppercase1"))
	assert.False(t, ValidatePassword("NOLOWERCASE1"))
	assert.False(t, ValidatePassword("NoDigitsHere"))
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("Sup3rSecret")
	require.NoError(t, err)
	assert.NotEqual(t, "Sup3rSecret", hash)

	assert.True(t, VerifyPassword("Sup3rSecret", hash))
	assert.False(t, VerifyPassword("WrongPass1", hash))
	assert.False(t, VerifyPassword("Sup3rSecret", "not-a-bcrypt-hash"))
}

func TestNormalizeContentType(t *testing.T) {
	assert.Equal(t, "image/png", NormalizeContentType("image/png"))
	assert.Equal(t, "image/jpeg", NormalizeContentType("IMAGE/JPEG"))
	assert.Equal(t, "image/png", NormalizeContentType(" image/png ; charset=binary"))
	assert.Equal(t, "application/pdf", NormalizeContentType("application/pdf; name=receipt.pdf"))
	assert.Equal(t, "", NormalizeContentType(""))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "hello", TruncateString("hello", 10))
	assert.Equal(t, "hel...", TruncateString("hello world", 3))
}

func TestContains(t *testing.T) {
	types := []string{"image/png", "image/jpeg"}
	assert.True(t, Contains(types, "image/png"))
	assert.False(t, Contains(types, "image/webp"))
	assert.False(t, Contains(nil, "image/png"))
}

func TestGenerateRandomString(t *testing.T) {
	s := GenerateRandomString(16)
	assert.Len(t, s, 16)
	assert.NotEqual(t, s, GenerateRandomString(16))
}

func TestStartOfDay(t *testing.T) {
	at := time.Date(2025, 6, 1, 15, 42, 7, 123, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), StartOfDay(at))
}

func TestTimeFormatRoundTrip(t *testing.T) {
	at := time.Date(2025, 6, 1, 15, 42, 7, 0, time.UTC)
	parsed, err := ParseTime(FormatTime(at))
	require.NoError(t, err)
	assert.True(t, parsed.Equal(at))
}
