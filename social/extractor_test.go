package social

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/signalscrape/document"
	"github.com/use-agent/signalscrape/models"
)

func page(head, body string) *document.Document {
	return document.Parse("<html><head>"+head+"</head><body>"+body+"</body></html>", "https://example.com/profile")
}

func TestExtractPlatforms(t *testing.T) {
	tests := []struct {
		name     string
		platform models.Platform
		doc      *document.Document
		want     int64
	}{
		{
			name:     "instagram og:description with K",
			platform: models.Instagram,
			doc:      page(`<meta property="og:description" content="12.3K Followers, 210 Following, 45 Posts">`, ""),
			want:     12300,
		},
		{
			name:     "instagram og:description with word suffix",
			platform: models.Instagram,
			doc:      page(`<meta property="og:description" content="1,234 Followers, 5 Following">`, ""),
			want:     1234,
		},
		{
			name:     "instagram inline json",
			platform: models.Instagram,
			doc:      page("", `<script>{"edge_followed_by":{"count":48213},"edge_follow":{"count":12}}</script>`),
			want:     48213,
		},
		{
			name:     "instagram text scan",
			platform: models.Instagram,
			doc:      page("", `<span>150.000 followers</span>`),
			want:     150000,
		},
		{
			name:     "facebook og:description likes",
			platform: models.Facebook,
			doc:      page(`<meta property="og:description" content="Acme. 3,456 likes · 12 talking about this.">`, ""),
			want:     3456,
		},
		{
			name:     "facebook og:description magnitude",
			platform: models.Facebook,
			doc:      page(`<meta property="og:description" content="Acme. 2,5K followers">`, ""),
			want:     2500,
		},
		{
			name:     "facebook people like this",
			platform: models.Facebook,
			doc:      page("", `<div>15,000 people like this</div>`),
			want:     15000,
		},
		{
			name:     "tiktok inline json",
			platform: models.TikTok,
			doc:      page("", `<script id="__UNIVERSAL_DATA__">{"stats":{"followerCount":98765,"heartCount":1}}</script>`),
			want:     98765,
		},
		{
			name:     "tiktok text scan",
			platform: models.TikTok,
			doc:      page("", `<strong>1.5M Followers</strong>`),
			want:     1_500_000,
		},
		{
			name:     "twitter inline json",
			platform: models.Twitter,
			doc:      page("", `<script>{"legacy":{"followers_count":4242}}</script>`),
			want:     4242,
		},
		{
			name:     "twitter text scan",
			platform: models.Twitter,
			doc:      page("", `<a>8,901 Followers</a>`),
			want:     8901,
		},
		{
			name:     "linkedin text scan",
			platform: models.LinkedIn,
			doc:      page("", `<p>Acme Corp | 25K followers on LinkedIn</p>`),
			want:     25000,
		},
		{
			name:     "youtube subscriberCountText",
			platform: models.YouTube,
			doc:      page("", `<script>var ytInitialData = {"subscriberCountText":{"simpleText":"1.2M subscribers"}};</script>`),
			want:     1_200_000,
		},
		{
			name:     "youtube text scan",
			platform: models.YouTube,
			doc:      page("", `<yt-formatted-string>350K subscribers</yt-formatted-string>`),
			want:     350_000,
		},
		{
			name:     "instagram text scan with K",
			platform: models.Instagram,
			doc:      page("", `<span>12.3K followers</span>`),
			want:     12_300,
		},
		{
			name:     "instagram text scan with spaced M",
			platform: models.Instagram,
			doc:      page("", `<span>1,5 M followers</span>`),
			want:     1_500_000,
		},
		{
			name:     "facebook text scan with K",
			platform: models.Facebook,
			doc:      page("", `<div>2.4K likes</div>`),
			want:     2_400,
		},
		{
			name:     "facebook text scan keeps first suffixed count",
			platform: models.Facebook,
			doc:      page("", `<div>2.4K likes</div><div>1,024 followers</div>`),
			want:     2_400,
		},
		{
			name:     "youtube text scan with B",
			platform: models.YouTube,
			doc:      page("", `<yt-formatted-string>1.2B subscribers</yt-formatted-string>`),
			want:     1_200_000_000,
		},
		{
			name:     "tiktok text scan with B",
			platform: models.TikTok,
			doc:      page("", `<strong>1.2B Followers</strong>`),
			want:     1_200_000_000,
		},
		{
			name:     "twitter text scan with lowercase k",
			platform: models.Twitter,
			doc:      page("", `<a>45.6k Followers</a>`),
			want:     45_600,
		},
	}

	x := NewExtractor(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := x.Extract(tt.doc, tt.platform)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMetaBeatsInlineJSON(t *testing.T) {
	doc := page(
		`<meta property="og:description" content="2M Followers">`,
		`<script>{"edge_followed_by":{"count":1999999}}</script>`,
	)
	got, ok := NewExtractor(nil, nil).Extract(doc, models.Instagram)
	require.True(t, ok)
	assert.Equal(t, int64(2_000_000), got)
}

func TestMetaSuffixNeedsWordBoundary(t *testing.T) {
	doc := page(`<meta property="og:description" content="Founded 2010 Making shoes. 3,400 likes">`, "")
	got, ok := NewExtractor(nil, nil).Extract(doc, models.Facebook)
	require.True(t, ok)
	assert.Equal(t, int64(3_400), got)

	doc = page(`<meta property="og:description" content="Since 1999 Best bakery in town. 812 Followers">`, "")
	got, ok = NewExtractor(nil, nil).Extract(doc, models.Instagram)
	require.True(t, ok)
	assert.Equal(t, int64(812), got)
}

func TestJSONBeatsTextScan(t *testing.T) {
	doc := page("", `<p>12 Followers</p><script>{"followerCount":777}</script>`)
	got, ok := NewExtractor(nil, nil).Extract(doc, models.TikTok)
	require.True(t, ok)
	assert.Equal(t, int64(777), got)
}

func TestTextScanTakesFirstOccurrence(t *testing.T) {
	// Known heuristic limitation: an unrelated count earlier in the page wins.
	doc := page("", `<aside>Suggested: 99 followers</aside><main>5,000 followers</main>`)
	got, ok := NewExtractor(nil, nil).Extract(doc, models.LinkedIn)
	require.True(t, ok)
	assert.Equal(t, int64(99), got)
}

func TestWordListsArePerPlatform(t *testing.T) {
	x := NewExtractor(nil, nil)
	subs := page("", `<p>4,200 subscribers</p>`)

	_, ok := x.Extract(subs, models.Instagram)
	assert.False(t, ok, "instagram does not read subscribers")

	got, ok := x.Extract(subs, models.YouTube)
	require.True(t, ok)
	assert.Equal(t, int64(4200), got)

	likes := page("", `<p>4,200 likes</p>`)
	_, ok = x.Extract(likes, models.TikTok)
	assert.False(t, ok)
	_, ok = x.Extract(likes, models.Facebook)
	assert.True(t, ok)
}

func TestExtractNoMatch(t *testing.T) {
	x := NewExtractor(nil, nil)
	for _, p := range models.Platforms {
		_, ok := x.Extract(page("<title>Log in</title>", "<p>Please sign in</p>"), p)
		assert.False(t, ok, string(p))
	}
}

func TestExtractNeverPanics(t *testing.T) {
	x := NewExtractor(nil, nil)

	assert.NotPanics(t, func() {
		_, ok := x.Extract(nil, models.Instagram)
		assert.False(t, ok)
	})
	assert.NotPanics(t, func() {
		_, ok := x.Extract(&document.Document{}, models.Facebook)
		assert.False(t, ok)
	})
	_, ok := x.Extract(page("", "1 follower"), models.Platform("myspace"))
	assert.False(t, ok)
}

func TestLookup(t *testing.T) {
	x := NewExtractor(nil, nil)

	tests := []struct {
		in   string
		want models.Platform
		ok   bool
	}{
		{"Instagram", models.Instagram, true},
		{"  YOUTUBE ", models.YouTube, true},
		{"tikTok", models.TikTok, true},
		{"X", models.Twitter, true},
		{"linkedin", models.LinkedIn, true},
		{"myspace", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := x.Lookup(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.in)
		}
	}
	assert.Equal(t, []string{"facebook", "instagram", "linkedin", "tiktok", "twitter", "youtube"}, x.Platforms())
}

func TestDefaultTableIsValid(t *testing.T) {
	for p, rules := range DefaultTable() {
		require.NotEmpty(t, rules, p)
		for i, r := range rules {
			assert.NoError(t, r.Validate(), "%s rule %d", p, i)
		}
	}
}

func TestDefaultTableIsACopy(t *testing.T) {
	a := DefaultTable()
	a[models.Instagram] = nil
	assert.NotEmpty(t, DefaultTable()[models.Instagram])
}

func TestParseTable(t *testing.T) {
	data := []byte(`
platforms:
  threads:
    - source: raw
      pattern: '"follower_count":(\d+)'
  Instagram:
    - source: meta
      meta: description
      pattern: '(?i)([\d,\.]+)\s*(k|m)?\s*followers'
      group: 1
      suffix_group: 2
`)
	table, err := ParseTable(data)
	require.NoError(t, err)

	x := NewExtractor(table, nil)
	p, ok := x.Lookup("Threads")
	require.True(t, ok)

	got, ok := x.Extract(page("", `{"follower_count":321}`), p)
	require.True(t, ok)
	assert.Equal(t, int64(321), got)

	require.Len(t, table[models.Instagram], 1)
	got, ok = x.Extract(page(`<meta name="description" content="7,5k Followers">`, ""), models.Instagram)
	require.True(t, ok)
	assert.Equal(t, int64(7500), got)

	assert.Len(t, table[models.YouTube], 2, "untouched platforms keep defaults")
}

func TestParseTableErrors(t *testing.T) {
	tests := map[string]string{
		"bad regex":      "platforms:\n  x1:\n    - source: raw\n      pattern: '(['\n",
		"bad source":     "platforms:\n  x1:\n    - source: dom\n      pattern: '(\\d+)'\n",
		"meta w/o name":  "platforms:\n  x1:\n    - source: meta\n      pattern: '(\\d+)'\n",
		"group range":    "platforms:\n  x1:\n    - source: raw\n      pattern: '(\\d+)'\n      group: 3\n",
		"no rules":       "platforms:\n  x1: []\n",
		"not yaml":       "platforms: [",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTable([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("platforms:\n  bluesky:\n    - source: raw\n      pattern: '(\\d+) followers'\n"), 0o644))

	table, err := LoadTable(path)
	require.NoError(t, err)
	assert.Contains(t, table, models.Platform("bluesky"))

	_, err = LoadTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
