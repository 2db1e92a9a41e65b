package password

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var fast = Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func TestHashVerify_Argon2id(t *testing.T) {
	h, err := Hash(fast, "s3cret!")
	require.NoError(t, err)
	require.True(t, Verify("s3cret!", h))
	require.False(t, Verify("s3cret?", h))
}

func TestVerify_Bcrypt(t *testing.T) {
	h, err := bcrypt.GenerateFromPassword([]byte("legacy"), bcrypt.MinCost)
	require.NoError(t, err)
	require.True(t, Verify("legacy", string(h)))
	require.False(t, Verify("other", string(h)))
}

func TestVerify_UnknownFormat(t *testing.T) {
	require.False(t, Verify("x", "plain-x"))
	require.False(t, Verify("x", "$argon2id$broken"))
}

func TestHash_Empty(t *testing.T) {
	_, err := Hash(fast, "")
	require.ErrorIs(t, err, ErrEmpty)
}

func TestPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bl.txt")
	require.NoError(t, os.WriteFile(path, []byte("# common\nPassword1\n\n"), 0o600))
	bl, err := LoadBlacklist(path)
	require.NoError(t, err)

	p := Policy{MinLength: 8, MaxLength: 12, RequireDigit: true, Blacklist: bl}

	ok, _ := p.Validate("longenough1")
	require.True(t, ok)

	ok, reasons := p.Validate("short")
	require.False(t, ok)
	require.Contains(t, reasons, "too_short")
	require.Contains(t, reasons, "missing_digit")

	_, reasons = p.Validate("waytoolongpassword1")
	require.Contains(t, reasons, "too_long")

	_, reasons = p.Validate("password1")
	require.Contains(t, reasons, "blacklisted")
}
