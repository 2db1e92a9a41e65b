package password

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// Policy valida contraseñas nuevas (alta de usuarios desde el CLI).
// MaxLength también lo aplica el password grant antes de verificar.
type Policy struct {
	MinLength     int
	MaxLength     int // bytes; 0 = sin límite
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
	Blacklist     map[string]struct{}
}

func (p Policy) Validate(s string) (ok bool, reasons []string) {
	if len([]rune(s)) < p.MinLength {
		reasons = append(reasons, "too_short")
	}
	if p.MaxLength > 0 && len(s) > p.MaxLength {
		reasons = append(reasons, "too_long")
	}
	var hasU, hasL, hasD, hasS bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			hasU = true
		case unicode.IsLower(r):
			hasL = true
		case unicode.IsDigit(r):
			hasD = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasS = true
		}
	}
	if p.RequireUpper && !hasU {
		reasons = append(reasons, "missing_upper")
	}
	if p.RequireLower && !hasL {
		reasons = append(reasons, "missing_lower")
	}
	if p.RequireDigit && !hasD {
		reasons = append(reasons, "missing_digit")
	}
	if p.RequireSymbol && !hasS {
		reasons = append(reasons, "missing_symbol")
	}
	if _, bad := p.Blacklist[strings.ToLower(strings.TrimSpace(s))]; bad {
		reasons = append(reasons, "blacklisted")
	}
	return len(reasons) == 0, reasons
}

// LoadBlacklist lee una contraseña por línea; ignora vacías y comentarios (#).
func LoadBlacklist(path string) (map[string]struct{}, error) {
	bl := map[string]struct{}{}
	if strings.TrimSpace(path) == "" {
		return bl, nil
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(strings.ToLower(sc.Text()))
		if s != "" && !strings.HasPrefix(s, "#") {
			bl[s] = struct{}{}
		}
	}
	return bl, sc.Err()
}
