// Package metadata 从 Slack 消息正文中提取会议元数据
package metadata

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mtglog/app/model"
)

// field 一条提取规则：匹配 "标签: 值" 形式的行，再做后处理
type field struct {
	name    string
	pattern *regexp.Regexp
	post    func(string) (string, bool)
	assign  func(m *model.TaskMetadata, v string)
}

func labeled(labels ...string) *regexp.Regexp {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = regexp.QuoteMeta(l)
	}
	return regexp.MustCompile(`(?im)^[ \t]*[-*・]?[ \t]*(?:` + strings.Join(quoted, "|") + `)[ \t]*[:：][ \t]*(.+?)[ \t]*$`)
}

func str(dst func(m *model.TaskMetadata) **string) func(*model.TaskMetadata, string) {
	return func(m *model.TaskMetadata, v string) {
		s := v
		*dst(m) = &s
	}
}

var fields = []field{
	{name: "consultant_name", pattern: labeled("コンサルタント名", "コンサルタント", "担当", "consultant name", "consultant"), post: trimmed,
		assign: str(func(m *model.TaskMetadata) **string { return &m.ConsultantName })},
	{name: "company_name", pattern: labeled("企業名", "会社名", "company name", "company"), post: trimmed,
		assign: str(func(m *model.TaskMetadata) **string { return &m.CompanyName })},
	{name: "company_type", pattern: labeled("企業タイプ", "company type"), post: trimmed,
		assign: str(func(m *model.TaskMetadata) **string { return &m.CompanyType })},
	{name: "company_problem", pattern: labeled("企業の課題", "課題", "company issues", "company problem"), post: trimmed,
		assign: str(func(m *model.TaskMetadata) **string { return &m.CompanyProblem })},
	{name: "company_phase", pattern: labeled("企業のフェーズ", "フェーズ", "company phase"), post: trimmed,
		assign: str(func(m *model.TaskMetadata) **string { return &m.CompanyPhase })},
	{name: "meeting_date", pattern: labeled("面談日", "meeting date"), post: NormalizeDate,
		assign: str(func(m *model.TaskMetadata) **string { return &m.MeetingDate })},
	{name: "meeting_count", pattern: labeled("面談回数", "meeting count"), post: digits,
		assign: func(m *model.TaskMetadata, v string) {
			n, _ := strconv.Atoi(v)
			m.MeetingCount = &n
		}},
	{name: "meeting_type", pattern: labeled("面談種別", "面談タイプ", "meeting type"), post: trimmed,
		assign: str(func(m *model.TaskMetadata) **string { return &m.MeetingType })},
	{name: "support_area", pattern: labeled("支援領域", "support area"), post: trimmed,
		assign: str(func(m *model.TaskMetadata) **string { return &m.SupportArea })},
	{name: "internal_sharing_items", pattern: labeled("社内共有が必要な事項", "社内共有", "internal sharing"), post: trimmed,
		assign: str(func(m *model.TaskMetadata) **string { return &m.InternalSharingItems })},
}

// Extract 扫描文本，未匹配的字段保持 nil
func Extract(text string) model.TaskMetadata {
	var m model.TaskMetadata
	for _, f := range fields {
		match := f.pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		if v, ok := f.post(match[1]); ok {
			f.assign(&m, v)
		}
	}
	return m
}

// Merge 用 override 中非 nil 的字段覆盖 base
func Merge(base, override model.TaskMetadata) model.TaskMetadata {
	pick := func(a, b *string) *string {
		if b != nil && strings.TrimSpace(*b) != "" {
			return b
		}
		return a
	}
	out := model.TaskMetadata{
		ConsultantName:       pick(base.ConsultantName, override.ConsultantName),
		CompanyName:          pick(base.CompanyName, override.CompanyName),
		CompanyType:          pick(base.CompanyType, override.CompanyType),
		CompanyProblem:       pick(base.CompanyProblem, override.CompanyProblem),
		CompanyPhase:         pick(base.CompanyPhase, override.CompanyPhase),
		MeetingDate:          pick(base.MeetingDate, override.MeetingDate),
		MeetingType:          pick(base.MeetingType, override.MeetingType),
		SupportArea:          pick(base.SupportArea, override.SupportArea),
		InternalSharingItems: pick(base.InternalSharingItems, override.InternalSharingItems),
		MeetingCount:         base.MeetingCount,
	}
	if override.MeetingCount != nil {
		out.MeetingCount = override.MeetingCount
	}
	return out
}

func trimmed(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

var fullWidth = strings.NewReplacer(
	"０", "0", "１", "1", "２", "2", "３", "3", "４", "4",
	"５", "5", "６", "6", "７", "7", "８", "8", "９", "9",
)

var firstNumber = regexp.MustCompile(`\d+`)

func digits(s string) (string, bool) {
	n := firstNumber.FindString(fullWidth.Replace(s))
	return n, n != ""
}

var datePattern = regexp.MustCompile(`^(\d{4})\s*[-/.年]\s*(\d{1,2})\s*[-/.月]\s*(\d{1,2})\s*日?`)

// NormalizeDate 把 2024/5/1、2024年5月1日 等写法统一为 2024-05-01，
// 无法识别的写法原样保留
func NormalizeDate(s string) (string, bool) {
	s, ok := trimmed(fullWidth.Replace(s))
	if !ok {
		return "", false
	}
	m := datePattern.FindStringSubmatch(s)
	if m == nil {
		return s, true
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return s, true
	}
	return fmt.Sprintf("%04d-%02d-%02d", y, mo, d), true
}
