package social

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/use-agent/signalscrape/models"
	"gopkg.in/yaml.v3"
)

// Table maps each platform to its ordered chain of rules.
type Table map[models.Platform][]Rule

// The generic text scans (the last rule of each chain) take the first
// "<number>[K|M|B] followers" anywhere in the body. On pages that also list
// counts for suggested or related accounts this can pick the wrong number;
// the meta and inline JSON rules ahead of them are the precise ones.
//
// A magnitude letter in a meta description only counts when it stands alone
// ("12.3K Followers"), never as the first letter of a word ("2010 Making").
var defaultTable = Table{
	models.Instagram: {
		meta("og:description", `(?i)(\d[\d,\.]*)\s*(?:([KMB])\b|(followers?))`, 1, 2),
		raw(`"edge_followed_by":\{"count":(\d+)\}`, 1, 0),
		raw(`(?i)(\d[\d,\.]*)\s*([KMB])?\s*followers?`, 1, 2),
	},
	models.Facebook: {
		meta("og:description", `(?i)(\d[\d,\.]*)\s*(?:([KMB])\b|(followers?|likes?))`, 1, 2),
		raw(`(?i)(\d[\d,\.]*)\s*([KMB])?\s*(followers?|likes?|people like this)`, 1, 2),
	},
	models.TikTok: {
		raw(`"followerCount":(\d+)`, 1, 0),
		raw(`(?i)(\d[\d,\.]*)\s*([KMB])?\s*Followers?`, 1, 2),
	},
	models.Twitter: {
		raw(`"followers_count":(\d+)`, 1, 0),
		raw(`(?i)(\d[\d,\.]*)\s*([KMB])?\s*Followers?`, 1, 2),
	},
	models.LinkedIn: {
		raw(`(?i)(\d[\d,\.]*)\s*([KMB])?\s*followers?`, 1, 2),
	},
	models.YouTube: {
		raw(`(?i)"subscriberCountText":\{"simpleText":"([\d,\.]+[MKB]?)\s*subscribers?"`, 1, 0),
		raw(`(?i)(\d[\d,\.]*)\s*([KMB])?\s*subscribers?`, 1, 2),
	},
}

// DefaultTable returns a copy of the built-in rules.
func DefaultTable() Table {
	t := make(Table, len(defaultTable))
	for p, rules := range defaultTable {
		t[p] = append([]Rule(nil), rules...)
	}
	return t
}

// Platforms returns the table's platform names in sorted order.
func (t Table) Platforms() []string {
	names := make([]string, 0, len(t))
	for p := range t {
		names = append(names, string(p))
	}
	slices.Sort(names)
	return names
}

// ruleFile is the YAML layout accepted by LoadTable.
//
//	platforms:
//	  threads:
//	    - source: raw
//	      pattern: '"follower_count":(\d+)'
//	      group: 1
type ruleFile struct {
	Platforms map[string][]ruleSpec `yaml:"platforms"`
}

type ruleSpec struct {
	Source      string `yaml:"source"`
	Meta        string `yaml:"meta"`
	Pattern     string `yaml:"pattern"`
	Group       int    `yaml:"group"`
	SuffixGroup int    `yaml:"suffix_group"`
}

// LoadTable reads a YAML rule file and layers it over the defaults: a
// platform listed in the file replaces the built-in chain for that
// platform, and new platform names are added.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("social: read rules: %w", err)
	}
	return ParseTable(data)
}

// ParseTable is LoadTable over in-memory YAML.
func ParseTable(data []byte) (Table, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("social: parse rules: %w", err)
	}

	table := DefaultTable()
	for name, specs := range file.Platforms {
		platform := models.Platform(strings.ToLower(strings.TrimSpace(name)))
		if platform == "" {
			return nil, fmt.Errorf("social: empty platform name")
		}
		if len(specs) == 0 {
			return nil, fmt.Errorf("social: platform %q has no rules", platform)
		}
		rules := make([]Rule, 0, len(specs))
		for i, s := range specs {
			re, err := regexp.Compile(s.Pattern)
			if err != nil {
				return nil, fmt.Errorf("social: %s rule %d: %w", platform, i, err)
			}
			r := Rule{
				Source:      Source(strings.ToLower(s.Source)),
				Meta:        s.Meta,
				Pattern:     re,
				Group:       s.Group,
				SuffixGroup: s.SuffixGroup,
			}
			if r.Group == 0 {
				r.Group = 1
			}
			if err := r.Validate(); err != nil {
				return nil, fmt.Errorf("%s rule %d: %w", platform, i, err)
			}
			rules = append(rules, r)
		}
		table[platform] = rules
	}
	return table, nil
}
