package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"attendance-agent/internal/config"
	"attendance-agent/internal/entity"
	"attendance-agent/pkg/apperr"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBrowser serves HTML fixtures through goquery and moves between them
// when a control is clicked. Controls are keyed by "#id" when they carry an
// id, otherwise by their trimmed text.
type fakeBrowser struct {
	t *testing.T

	pages       map[string]string
	current     string
	doc         *goquery.Document
	transitions map[string]string
	nextRef     int

	clicks    []string
	fills     map[string]string
	presses   []string
	navigated []string

	launchErr error
	launched  bool
	closed    int
}

func newFakeBrowser(t *testing.T, start string, pages map[string]string) *fakeBrowser {
	t.Helper()

	f := &fakeBrowser{
		t:           t,
		pages:       pages,
		transitions: map[string]string{},
		fills:       map[string]string{},
	}
	f.load(start)

	return f
}

func (f *fakeBrowser) on(key, page string) *fakeBrowser {
	f.transitions[key] = page

	return f
}

func (f *fakeBrowser) load(name string) {
	html, ok := f.pages[name]
	require.True(f.t, ok, "unknown fixture %q", name)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(f.t, err)

	f.current = name
	f.doc = doc
}

func (f *fakeBrowser) Launch(ctx context.Context) error {
	if f.launchErr != nil {
		return f.launchErr
	}

	f.launched = true

	return nil
}

func (f *fakeBrowser) Close(ctx context.Context) error {
	f.closed++

	return nil
}

func (f *fakeBrowser) Navigate(ctx context.Context, url string) error {
	f.navigated = append(f.navigated, url)

	return nil
}

func (f *fakeBrowser) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	found := false
	f.doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = isShown(s)

		return !found
	})

	if !found {
		return apperr.Wrap("WaitForSelector", apperr.CodeTimeout,
			fmt.Errorf("timeout %s exceeded waiting for %s", timeout, selector),
			map[string]any{apperr.MetaReason: "wait_selector_timeout"})
	}

	return nil
}

func (f *fakeBrowser) WaitForLoad(ctx context.Context) error {
	return nil
}

func (f *fakeBrowser) Click(ctx context.Context, selector string) error {
	sel := f.doc.Find(selector).First()
	if sel.Length() == 0 {
		return apperr.NotFoundError("Click", errors.New("no element for "+selector))
	}

	key := controlKey(sel)
	f.clicks = append(f.clicks, key)

	if next, ok := f.transitions[key]; ok {
		f.load(next)
	}

	return nil
}

func (f *fakeBrowser) Fill(ctx context.Context, selector, value string) error {
	if f.doc.Find(selector).Length() == 0 {
		return apperr.NotFoundError("Fill", errors.New("no element for "+selector))
	}

	f.fills[selector] = value

	return nil
}

func (f *fakeBrowser) Press(ctx context.Context, selector, key string) error {
	f.presses = append(f.presses, key)

	if next, ok := f.transitions["key:"+key]; ok {
		f.load(next)
	}

	return nil
}

func (f *fakeBrowser) FindElements(ctx context.Context, query string) ([]entity.Element, error) {
	var elements []entity.Element

	f.doc.Find(query).Each(func(i int, s *goquery.Selection) {
		ref, ok := s.Attr("data-att-ref")
		if !ok {
			f.nextRef++
			ref = fmt.Sprint(f.nextRef)
			s.SetAttr("data-att-ref", ref)
		}

		elements = append(elements, entity.Element{
			Selector: fmt.Sprintf(`[data-att-ref="%s"]`, ref),
			Index:    i,
			Tag:      goquery.NodeName(s),
			Text:     collapse(visibleText(s)),
			OwnText:  collapse(ownText(s)),
			Value:    s.AttrOr("value", ""),
			Visible:  isShown(s),
			Depth:    s.Parents().Length(),
		})
	})

	return elements, nil
}

func (f *fakeBrowser) PageText(ctx context.Context) (string, error) {
	return visibleText(f.doc.Find("body")), nil
}

func (f *fakeBrowser) Content(ctx context.Context) (string, error) {
	return goquery.OuterHtml(f.doc.Selection)
}

func (f *fakeBrowser) Screenshot(ctx context.Context, path string) error {
	return nil
}

func (f *fakeBrowser) GetPageState(ctx context.Context) (*entity.PageState, error) {
	return &entity.PageState{
		URL:       "https://portal.example.com/" + f.current,
		Title:     f.doc.Find("title").Text(),
		Timestamp: time.Now(),
	}, nil
}

func (f *fakeBrowser) IsReady() bool {
	return f.launched && f.closed == 0
}

func controlKey(s *goquery.Selection) string {
	if id, ok := s.Attr("id"); ok && id != "" {
		return "#" + id
	}

	return collapse(s.Text())
}

func hidden(s *goquery.Selection) bool {
	if _, ok := s.Attr("hidden"); ok {
		return true
	}

	style := strings.ReplaceAll(s.AttrOr("style", ""), " ", "")

	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

func isShown(s *goquery.Selection) bool {
	if hidden(s) {
		return false
	}

	shown := true
	s.Parents().EachWithBreak(func(_ int, p *goquery.Selection) bool {
		shown = !hidden(p)

		return shown
	})

	return shown
}

// visibleText approximates innerText: hidden subtrees contribute nothing.
func visibleText(s *goquery.Selection) string {
	var b strings.Builder

	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			b.WriteString(c.Text())
		case "script", "style", "#comment":
		default:
			if !hidden(c) {
				b.WriteString(" ")
				b.WriteString(visibleText(c))
				b.WriteString(" ")
			}
		}
	})

	return b.String()
}

func ownText(s *goquery.Selection) string {
	var b strings.Builder

	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
			b.WriteString(" ")
		}
	})

	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func testConfig() *config.Config {
	return &config.Config{
		AppConfig: &config.AppConfig{
			LogLevel: "info",
		},
		PortalConfig: &config.PortalConfig{
			LoginURL:          "https://portal.example.com/",
			LoginID:           "EMP042",
			LoginPassword:     "hunter2",
			SignInLocation:    "Office",
			LoginFieldTimeout: time.Second,
		},
		BrowserConfig: &config.BrowserConfig{},
		WorkflowConfig: &config.WorkflowConfig{
			ModalProbeTimeout: 20 * time.Millisecond,
			OptionTimeout:     20 * time.Millisecond,
			PollInterval:      time.Millisecond,
			FinalAttempt:      true,
		},
		OutputConfig: &config.OutputConfig{},
	}
}

func newTestWorkflow(cfg *config.Config, browser *fakeBrowser) *AttendanceWorkflow {
	return NewAttendanceWorkflow(AttendanceWorkflowParams{
		Config:  cfg,
		Logger:  zap.NewNop(),
		Browser: browser,
	})
}
