package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// namePatternSource is the required name syntax: two segments separated by a
// forward slash, each starting alphanumeric with single _ . - separators in
// between. Case-insensitive at this stage; case is policed separately so a
// rewrite can be suggested.
const namePatternSource = `[A-Za-z0-9](?:[_.-]?[A-Za-z0-9]+)*/[A-Za-z0-9](?:[_.-]?[A-Za-z0-9]+)*`

var namePattern = regexp.MustCompile(`^` + namePatternSource + `$`)

// defaultBlockedPatterns are spam/scam keyword clusters. They are matched
// against the name with '.' and '-' stripped, case-insensitively, so
// "free-movie.stream/online" is caught as "freemoviestream/online".
var defaultBlockedPatterns = []string{
	// streaming piracy
	`(free|full|gratis|hd)(movie|film|episode)s?`,
	`(movie|film|episode)s?(stream|online|watch|download)`,
	`watch(free|online|movie|series)`,
	`(putlocker|123movies|gomovies|solarmovie)`,
	// game cheats and resource generators
	`(coin|gem|gold|diamond|credit|point|vbuck|robux|skin)s?(generator|hack|cheat|glitch|adder)`,
	`(free|unlimited)(coin|gem|gold|diamond|vbuck|robux)s?`,
	`(hack|cheat|aimbot|modmenu)s?(tool|online|download|apk)?(free|no(survey|verification))`,
	`(game|account)hack`,
	// coin/crypto scams
	`(bitcoin|btc|ethereum|crypto|blockchain|coinbase|wallet)(hack|generator|giveaway|doubler|recovery)`,
	`freebitcoin`,
}

// defaultAllowedVendors are vendor prefixes never caught by the blocklist,
// covering legitimate projects whose names collide with the heuristics.
var defaultAllowedVendors = []string{
	"symfony/",
	"laravel/",
	"phpoffice/",
	"moneyphp/",
	"pointybeard/",
	"skinny-framework/",
}

// defaultReservedNames is the classic DOS device name set; neither segment of
// a package name may equal one of these, case-insensitively.
var defaultReservedNames = []string{
	"nul", "con", "prn", "aux",
	"com1", "com2", "com3", "com4", "com5", "com6", "com7", "com8", "com9",
	"lpt1", "lpt2", "lpt3", "lpt4", "lpt5", "lpt6", "lpt7", "lpt8", "lpt9",
}

// PolicyConfig supplies the word lists of the acceptance policy. Entries
// extend the built-in defaults; matching semantics are fixed in code.
type PolicyConfig struct {
	BlockedPatterns []string
	AllowedVendors  []string
	ReservedNames   []string
}

// Policy is the compiled acceptance policy. Compile it once at process start
// and share it; it is immutable afterwards and safe for concurrent use.
type Policy struct {
	blocklist *regexp.Regexp
	allowlist []string
	reserved  map[string]struct{}
}

// NewPolicy compiles a policy from the built-in lists extended with the
// configured ones.
func NewPolicy(cfg PolicyConfig) (*Policy, error) {
	patterns := make([]string, 0, len(defaultBlockedPatterns)+len(cfg.BlockedPatterns))
	patterns = append(patterns, defaultBlockedPatterns...)
	patterns = append(patterns, cfg.BlockedPatterns...)

	blocklist, err := regexp.Compile(`(?i)(?:` + strings.Join(patterns, "|") + `)`)
	if err != nil {
		return nil, fmt.Errorf("failed to compile blocklist: %w", err)
	}

	allowlist := make([]string, 0, len(defaultAllowedVendors)+len(cfg.AllowedVendors))
	allowlist = append(allowlist, defaultAllowedVendors...)
	for _, vendor := range cfg.AllowedVendors {
		if !strings.HasSuffix(vendor, "/") {
			vendor += "/"
		}
		allowlist = append(allowlist, vendor)
	}

	reserved := make(map[string]struct{}, len(defaultReservedNames)+len(cfg.ReservedNames))
	for _, name := range defaultReservedNames {
		reserved[name] = struct{}{}
	}
	for _, name := range cfg.ReservedNames {
		reserved[strings.ToLower(name)] = struct{}{}
	}

	return &Policy{
		blocklist: blocklist,
		allowlist: allowlist,
		reserved:  reserved,
	}, nil
}

// MustDefaultPolicy compiles the built-in policy. It panics only if the
// built-in patterns are broken, which a test pins.
func MustDefaultPolicy() *Policy {
	p, err := NewPolicy(PolicyConfig{})
	if err != nil {
		panic(err)
	}
	return p
}

// blocked reports whether the name trips the blocklist without an allow-list
// override. Dots and hyphens are stripped before matching so separator
// placement cannot defeat the word lists.
func (p *Policy) blocked(name string) bool {
	lower := strings.ToLower(name)
	for _, vendor := range p.allowlist {
		if strings.HasPrefix(lower, vendor) {
			return false
		}
	}
	stripped := strings.NewReplacer(".", "", "-", "").Replace(name)
	return p.blocklist.MatchString(stripped)
}

// isReserved reports whether either name segment equals a reserved device
// name, case-insensitively.
func (p *Policy) isReserved(name string) bool {
	for _, segment := range strings.Split(name, "/") {
		if _, ok := p.reserved[strings.ToLower(segment)]; ok {
			return true
		}
	}
	return false
}
