package external

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"railwatch/internal/config"
	"railwatch/internal/types"
)

// statusArea is one page of the operator's per-area service bulletin and the
// routes it reports on.
type statusArea struct {
	Name   string
	Page   string
	Routes []string // route IDs
}

// statusAreas lists the operator's bulletin pages. A route appears under
// exactly one area.
var statusAreas = []statusArea{
	{Name: "札幌近郊", Page: "area_spo.html", Routes: []string{
		"jr-hokkaido.chitose", "jr-hokkaido.hakodate-main", "jr-hokkaido.gakuentoshi",
	}},
	{Name: "道央", Page: "area_doo.html", Routes: []string{
		"jr-hokkaido.muroran", "jr-hokkaido.hidaka", "jr-hokkaido.furano",
	}},
	{Name: "道北", Page: "area_dohoku.html", Routes: []string{
		"jr-hokkaido.soya", "jr-hokkaido.sekihoku", "jr-hokkaido.rumoi",
	}},
	{Name: "道東", Page: "area_doto.html", Routes: []string{
		"jr-hokkaido.nemuro", "jr-hokkaido.senmo", "jr-hokkaido.sekisho",
	}},
}

// routeKeywords maps route IDs to the words the bulletin uses for that line,
// including the named limited expresses running on it.
var routeKeywords = map[string][]string{
	"jr-hokkaido.chitose":       {"千歳線", "エアポート", "快速エアポート", "新千歳空港"},
	"jr-hokkaido.hakodate-main": {"函館本線", "函館線", "ライラック", "カムイ"},
	"jr-hokkaido.gakuentoshi":   {"学園都市線", "札沼線"},
	"jr-hokkaido.muroran":       {"室蘭本線", "室蘭線", "すずらん"},
	"jr-hokkaido.hidaka":        {"日高本線", "日高線"},
	"jr-hokkaido.furano":        {"富良野線"},
	"jr-hokkaido.soya":          {"宗谷本線", "宗谷線", "サロベツ", "稚内"},
	"jr-hokkaido.sekihoku":      {"石北本線", "石北線", "オホーツク", "大雪"},
	"jr-hokkaido.rumoi":         {"留萌本線", "留萌線"},
	"jr-hokkaido.nemuro":        {"根室本線", "根室線", "おおぞら", "帯広"},
	"jr-hokkaido.senmo":         {"釧網本線", "釧網線"},
	"jr-hokkaido.sekisho":       {"石勝線", "とかち"},
}

// suspensionKeywords are the bulletin phrasings that mean trains are not
// running.
var suspensionKeywords = []string{"運休", "見合わせ", "見合せ", "終日運休", "全区間運休", "部分運休"}

var (
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	spaceRe      = regexp.MustCompile(`\s+`)
	delayRe      = regexp.MustCompile(`遅[れ延]|約\d+分`)
	resumptionRe = regexp.MustCompile(`(\d{1,2})[:：](\d{2})\s*頃?に?\s*運転(?:を)?再開`)
)

// keywordProximity is the character distance within which a suspension word
// is attributed to a route mention.
const keywordProximity = 200

// contextWindow is how much surrounding bulletin text is kept as the raw
// status text for a flagged route.
const contextWindow = 200

var jst = time.FixedZone("JST", 9*60*60)

// OperatorClient fetches the operator's per-area service bulletins and
// reduces them to per-route official statuses.
type OperatorClient struct {
	base    *BaseClient
	baseURL string
	log     *slog.Logger
}

// NewOperatorClient builds an OperatorClient over the shared resilient base
// client.
func NewOperatorClient(httpClient *http.Client, cfg config.OperatorConfig, log *slog.Logger) *OperatorClient {
	return &OperatorClient{
		base:    NewBaseClient(httpClient, "operator-status", DefaultRetryPolicy(), "RailWatch/1.0"),
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		log:     log,
	}
}

// FetchAll retrieves every area bulletin in parallel and merges the results
// into a per-route map. Routes running normally are absent from the map. A
// single failed area does not fail the whole call; its routes simply report
// nothing.
func (c *OperatorClient) FetchAll(ctx context.Context, now time.Time) (map[string]*types.OfficialStatus, error) {
	var (
		mu     sync.Mutex
		merged = make(map[string]*types.OfficialStatus)
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, area := range statusAreas {
		area := area
		g.Go(func() error {
			statuses, err := c.fetchArea(gctx, area, now)
			if err != nil {
				c.log.WarnContext(gctx, "area bulletin fetch failed",
					"area", area.Name, "error", err)
				return nil
			}
			mu.Lock()
			for id, st := range statuses {
				merged[id] = st
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return merged, nil
}

// Fetch returns the official status for one route, or nil when the operator
// reports nothing abnormal for it.
func (c *OperatorClient) Fetch(ctx context.Context, routeID string, now time.Time) (*types.OfficialStatus, error) {
	for _, area := range statusAreas {
		for _, id := range area.Routes {
			if id != routeID {
				continue
			}
			statuses, err := c.fetchArea(ctx, area, now)
			if err != nil {
				return nil, err
			}
			return statuses[routeID], nil
		}
	}
	return nil, nil
}

// fetchArea downloads one bulletin page and extracts the status of each of
// its routes.
func (c *OperatorClient) fetchArea(ctx context.Context, area statusArea, now time.Time) (map[string]*types.OfficialStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+area.Page, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build bulletin request", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "ja")

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamOperator,
			fmt.Sprintf("operator bulletin returned %d", resp.StatusCode),
			nil,
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamOperator, "failed to read bulletin body", err)
	}

	text := flattenHTML(string(body))
	out := make(map[string]*types.OfficialStatus)
	for _, routeID := range area.Routes {
		if st := parseRouteStatus(text, routeID, now); st != nil {
			out[routeID] = st
		}
	}
	return out, nil
}

// flattenHTML strips tags and collapses whitespace so keyword distances are
// measured over visible text.
func flattenHTML(html string) string {
	text := tagRe.ReplaceAllString(html, " ")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	return spaceRe.ReplaceAllString(text, " ")
}

// parseRouteStatus scans the flattened bulletin text for one route. A
// suspension word within keywordProximity runes of a route mention marks the
// route suspended; a delay phrasing nearby marks it delayed. Routes with no
// abnormal mention return nil.
func parseRouteStatus(text, routeID string, now time.Time) *types.OfficialStatus {
	keywords := routeKeywords[routeID]
	if len(keywords) == 0 {
		return nil
	}

	runes := []rune(text)
	for _, keyword := range keywords {
		kwIdx := runeIndex(runes, keyword)
		if kwIdx < 0 {
			continue
		}

		lo := kwIdx - contextWindow
		if lo < 0 {
			lo = 0
		}
		hi := kwIdx + contextWindow
		if hi > len(runes) {
			hi = len(runes)
		}
		nearby := string(runes[lo:hi])

		for _, suspension := range suspensionKeywords {
			suspIdx := runeIndex(runes, suspension)
			if suspIdx < 0 {
				continue
			}
			dist := kwIdx - suspIdx
			if dist < 0 {
				dist = -dist
			}
			if dist < keywordProximity {
				st := &types.OfficialStatus{
					RouteID:    routeID,
					Status:     types.StateSuspended,
					StatusText: "運休・運転見合わせ中",
					RawText:    nearby,
					UpdatedAt:  now,
				}
				if t := parseResumptionTime(nearby, now); t != nil {
					st.ResumptionTime = t
				}
				return st
			}
		}

		if delayRe.MatchString(nearby) {
			return &types.OfficialStatus{
				RouteID:    routeID,
				Status:     types.StateDelay,
				StatusText: "遅延が発生しています",
				RawText:    nearby,
				UpdatedAt:  now,
			}
		}
	}
	return nil
}

// parseResumptionTime extracts an announced restart clock time from bulletin
// text, anchored to today in JST.
func parseResumptionTime(text string, now time.Time) *time.Time {
	m := resumptionRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	hh, err1 := strconv.Atoi(m[1])
	mm, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil || hh > 23 || mm > 59 {
		return nil
	}
	local := now.In(jst)
	t := time.Date(local.Year(), local.Month(), local.Day(), hh, mm, 0, 0, jst)
	return &t
}

// runeIndex returns the rune offset of substr in runes, or -1.
func runeIndex(runes []rune, substr string) int {
	idx := strings.Index(string(runes), substr)
	if idx < 0 {
		return -1
	}
	return len([]rune(string(runes)[:idx]))
}
