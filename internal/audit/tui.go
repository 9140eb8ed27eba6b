package audit

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobsift/internal/model"
)

// Lines per listing in the list view (title + subtitle + blank separator).
const jobItemHeight = 3

// actionTimeout bounds an on-demand fetch or classification.
const actionTimeout = 3 * time.Minute

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39"))

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle   = headerStyle.Foreground(lipgloss.Color("39"))
	inactiveHeaderStyle = headerStyle.Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	titleStyle         = lipgloss.NewStyle().Bold(true)
	subtitleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))
	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Width(26)

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	bodyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// Options carries the on-demand actions of the detail view. Either func may
// be nil, which disables the matching key.
type Options struct {
	Enrich          func(ctx context.Context, job model.JobListing) (model.JobListing, error)
	Classifier      model.Classifier
	Violations      func(c model.Classification) []string
	Classifications map[string]model.Classification // preloaded, keyed by job_url
}

type detailFetchedMsg struct {
	job model.JobListing
	err error
}

type classifiedMsg struct {
	jobURL string
	result model.Classification
	ok     bool
}

type auditModel struct {
	allJobs       []model.JobListing
	matchedJobs   []model.JobListing
	leftViewport  viewport.Model
	rightViewport viewport.Model
	activePane    int // 0=left, 1=right
	leftCursor    int
	rightCursor   int
	width         int
	height        int
	ready         bool

	view            viewState
	detailJob       model.JobListing
	detailViewport  viewport.Model
	detailLoading   bool
	detailError     string
	showDescription bool

	opts            Options
	classifications map[string]model.Classification
	classifying     bool
	classifyError   string

	wantQuit bool
}

func (m auditModel) Init() tea.Cmd {
	return nil
}

func (m auditModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case detailFetchedMsg:
		m.detailLoading = false
		if msg.err != nil {
			m.detailError = fmt.Sprintf("failed to load detail page: %v", msg.err)
		} else {
			m.detailError = ""
			m.detailJob = msg.job
			m.replaceJob(msg.job)
		}
		m.detailViewport.SetContent(m.renderDetail())
		return m, nil

	case classifiedMsg:
		m.classifying = false
		if !msg.ok {
			m.classifyError = "the model returned no usable classification"
		} else {
			m.classifyError = ""
			msg.result.JobURL = msg.jobURL
			m.classifications[msg.jobURL] = msg.result
		}
		m.detailViewport.SetContent(m.renderDetail())
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m auditModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "b":
		m.wantQuit = false
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		return m.openDetailView()
	}

	var cmd tea.Cmd
	if m.activePane == 0 {
		m.leftViewport, cmd = m.leftViewport.Update(msg)
	} else {
		m.rightViewport, cmd = m.rightViewport.Update(msg)
	}
	return m, cmd
}

func (m auditModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		openURL(m.detailJob.JobURL)
		return m, nil
	case "r":
		if m.detailJob.Description != "" {
			m.showDescription = !m.showDescription
			m.detailViewport.SetContent(m.renderDetail())
			m.detailViewport.SetYOffset(0)
		}
		return m, nil
	case "e":
		if m.canEnrich() {
			m.detailLoading = true
			m.detailError = ""
			m.detailViewport.SetContent(m.renderDetail())
			return m, m.enrichCmd(m.detailJob)
		}
		return m, nil
	case "s":
		if m.canClassify() {
			m.classifying = true
			m.classifyError = ""
			m.detailViewport.SetContent(m.renderDetail())
			return m, m.classifyCmd(m.detailJob)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m auditModel) canEnrich() bool {
	return m.opts.Enrich != nil && !m.detailLoading && !m.detailJob.Enriched()
}

func (m auditModel) canClassify() bool {
	_, done := m.classifications[m.detailJob.JobURL]
	return m.opts.Classifier != nil && !m.classifying && !done && m.detailJob.Enriched()
}

func (m auditModel) enrichCmd(job model.JobListing) tea.Cmd {
	enrich := m.opts.Enrich
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		enriched, err := enrich(ctx, job)
		return detailFetchedMsg{job: enriched, err: err}
	}
}

func (m auditModel) classifyCmd(job model.JobListing) tea.Cmd {
	classifier := m.opts.Classifier
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		c, ok := classifier.Classify(ctx, job.Description)
		return classifiedMsg{jobURL: job.JobURL, result: c, ok: ok}
	}
}

func (m *auditModel) moveCursor(delta int) {
	if m.activePane == 0 {
		m.leftCursor = clamp(m.leftCursor+delta, 0, max(len(m.allJobs)-1, 0))
	} else {
		m.rightCursor = clamp(m.rightCursor+delta, 0, max(len(m.matchedJobs)-1, 0))
	}
}

func (m *auditModel) ensureCursorVisible() {
	vp, cursor := &m.leftViewport, m.leftCursor
	if m.activePane == 1 {
		vp, cursor = &m.rightViewport, m.rightCursor
	}

	top := cursor * jobItemHeight
	bottom := top + jobItemHeight - 1
	if top < vp.YOffset {
		vp.SetYOffset(top)
	} else if bottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(bottom - vp.Height + 1)
	}
}

func (m auditModel) openDetailView() (tea.Model, tea.Cmd) {
	jobs := m.activeJobs()
	if len(jobs) == 0 {
		return m, nil
	}

	m.view = viewDetail
	m.detailJob = jobs[m.activeCursor()]
	m.detailError = ""
	m.classifyError = ""
	m.showDescription = false
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

// replaceJob updates the listing in both panes so re-entering shows the
// fetched detail.
func (m *auditModel) replaceJob(job model.JobListing) {
	for _, list := range [][]model.JobListing{m.allJobs, m.matchedJobs} {
		for i := range list {
			if list[i].JobURL == job.JobURL {
				list[i] = job
			}
		}
	}
}

func (m *auditModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)
	// Header + border top/bottom + status bar.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.leftViewport = viewport.New(paneWidth, paneHeight)
		m.rightViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width = paneWidth
		m.leftViewport.Height = paneHeight
		m.rightViewport.Width = paneWidth
		m.rightViewport.Height = paneHeight
	}
	m.recalcContent()
}

func (m *auditModel) recalcContent() {
	m.leftViewport.SetContent(renderJobs(m.allJobs, m.leftCursor, m.activePane == 0))
	m.rightViewport.SetContent(renderJobs(m.matchedJobs, m.rightCursor, m.activePane == 1))
}

func (m auditModel) activeJobs() []model.JobListing {
	if m.activePane == 0 {
		return m.allJobs
	}
	return m.matchedJobs
}

func (m auditModel) activeCursor() int {
	if m.activePane == 0 {
		return m.leftCursor
	}
	return m.rightCursor
}

func (m auditModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m auditModel) viewList() string {
	paneWidth := m.leftViewport.Width

	leftHeader := fmt.Sprintf(" All Listings (%d)", len(m.allJobs))
	rightHeader := fmt.Sprintf(" Keyword Matches (%d)", len(m.matchedJobs))

	leftHeaderStyle, rightHeaderStyle := activeHeaderStyle, inactiveHeaderStyle
	leftBorder, rightBorder := activeBorderStyle, inactiveBorderStyle
	if m.activePane == 1 {
		leftHeaderStyle, rightHeaderStyle = inactiveHeaderStyle, activeHeaderStyle
		leftBorder, rightBorder = inactiveBorderStyle, activeBorderStyle
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeaderStyle.Render(leftHeader)),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeaderStyle.Render(rightHeader)),
	)
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		leftBorder.Width(paneWidth).Render(m.leftViewport.View()),
		" ",
		rightBorder.Width(paneWidth).Render(m.rightViewport.View()),
	)

	statusText := fmt.Sprintf(" %d listings | %d matched | %d enriched    ←/→/Tab switch  ↑/↓ cursor  Enter detail  Esc back  q quit",
		len(m.allJobs), len(m.matchedJobs), countEnriched(m.allJobs))
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m auditModel) viewDetail() string {
	title := detailTitleStyle.Render("Listing Details")
	switch {
	case m.detailLoading:
		title += "  (fetching detail page...)"
	case m.classifying:
		title += "  (classifying...)"
	}

	content := activeBorderStyle.Width(m.width - 2).Render(m.detailViewport.View())

	keys := []string{"o open URL"}
	if m.canEnrich() {
		keys = append(keys, "e fetch detail")
	}
	if m.detailJob.Description != "" {
		keys = append(keys, "r description")
	}
	if m.canClassify() {
		keys = append(keys, "s classify")
	}
	keys = append(keys, "esc/backspace back", "↑/↓ scroll", "q quit")
	statusBar := statusBarStyle.Width(m.width).Render(" " + strings.Join(keys, "  "))

	return title + "\n" + content + "\n" + statusBar
}

func (m auditModel) renderDetail() string {
	j := m.detailJob
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	addField("Title", j.Title)
	addField("Company", j.Company)
	addField("Location", j.Location)
	addField("Posted", j.PostingDate)
	addField("Job URL", j.JobURL)

	if len(j.Criteria) > 0 {
		b.WriteByte('\n')
		keys := make([]string, 0, len(j.Criteria))
		for k := range j.Criteria {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			addField(k, j.Criteria[k])
		}
	}

	if m.detailError != "" {
		b.WriteString("\n" + errorStyle.Render("⚠ "+m.detailError) + "\n")
	}

	wrapWidth := max(m.width-8, 20)
	divider := func(label string) string {
		return dividerStyle.Render(label + strings.Repeat("─", max(wrapWidth-len(label), 3)))
	}

	c, classified := m.classifications[j.JobURL]
	switch {
	case classified:
		b.WriteString("\n" + divider("── Classification ") + "\n\n")
		for _, f := range model.ClassificationFields {
			if f == model.FieldSkillsMentioned {
				continue
			}
			addField(f, c.Value(f))
		}
		if skills := c.Skills(); len(skills) > 0 {
			b.WriteString(labelStyle.Render(model.FieldSkillsMentioned) + "\n")
			for _, s := range skills {
				b.WriteString("  • " + s + "\n")
			}
		}
		if m.opts.Violations != nil {
			for _, v := range m.opts.Violations(c) {
				b.WriteString(warnStyle.Render("  ! "+v) + "\n")
			}
		}
	case m.classifying:
		b.WriteString("\n" + hintStyle.Render("  classifying job description...") + "\n")
	case m.classifyError != "":
		b.WriteString("\n" + errorStyle.Render("⚠ "+m.classifyError) + "\n")
	case m.canClassify():
		b.WriteString("\n" + hintStyle.Render("  press s to classify this listing") + "\n")
	}

	switch {
	case j.Description == "" && m.canEnrich():
		b.WriteString("\n" + hintStyle.Render("  not enriched yet, press e to fetch the detail page") + "\n")
	case j.Description != "" && m.showDescription:
		b.WriteString("\n" + divider("── Job Description ") + "\n\n")
		b.WriteString(bodyStyle.Render(wrapLines(j.Description, wrapWidth)) + "\n")
	case j.Description != "":
		b.WriteString("\n" + hintStyle.Render("  press r to read the job description") + "\n")
	}

	return b.String()
}

func renderJobs(jobs []model.JobListing, cursor int, isActive bool) string {
	if len(jobs) == 0 {
		return "  (no listings)"
	}

	var b strings.Builder
	for i, j := range jobs {
		ts, ss, prefix := titleStyle, subtitleStyle, "  "
		if isActive && i == cursor {
			ts, ss, prefix = selectedTitleStyle, selectedSubtitleStyle, "> "
		}

		mark := ""
		if j.Enriched() {
			mark = " ✓"
		}
		b.WriteString(prefix + ts.Render(j.Title+mark) + "\n")

		posted := j.PostingDate
		if posted == "" {
			posted = "n/a"
		}
		b.WriteString(prefix + ss.Render(fmt.Sprintf("%s · %s · %s", j.Company, j.Location, posted)) + "\n")

		if i < len(jobs)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func countEnriched(jobs []model.JobListing) int {
	n := 0
	for _, j := range jobs {
		if j.Enriched() {
			n++
		}
	}
	return n
}

// sortByDate orders listings newest first; undated listings go last.
func sortByDate(jobs []model.JobListing) {
	sort.SliceStable(jobs, func(i, j int) bool {
		a, b := jobs[i].PostingDate, jobs[j].PostingDate
		if a == "" || b == "" {
			return a != ""
		}
		return a > b
	})
}

// wrapLines word-wraps each line of text to width, keeping line breaks.
func wrapLines(text string, width int) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = wordWrap(line, width)
	}
	return strings.Join(lines, "\n")
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// newAuditModel sorts both lists and prepares the initial state.
func newAuditModel(allJobs, matchedJobs []model.JobListing, opts Options) auditModel {
	sortByDate(allJobs)
	sortByDate(matchedJobs)

	classifications := make(map[string]model.Classification, len(opts.Classifications))
	for k, v := range opts.Classifications {
		classifications[k] = v
	}
	return auditModel{
		allJobs:         allJobs,
		matchedJobs:     matchedJobs,
		opts:            opts,
		classifications: classifications,
	}
}

// RunAuditTUI launches the interactive split-pane audit TUI: every listing on
// the left, keyword matches on the right. Returns wantQuit=true if the user
// pressed q/ctrl+c, false if they pressed esc to return to the source picker.
func RunAuditTUI(allJobs, matchedJobs []model.JobListing, opts Options) (bool, error) {
	p := tea.NewProgram(newAuditModel(allJobs, matchedJobs, opts), tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	return result.(auditModel).wantQuit, nil
}
