package service

import (
	"fmt"
	"strconv"
	"strings"

	"mtglog/app/model"
)

const (
	summaryHeading  = "# 議事メモ"
	charsPerToken   = 4
	assistantPrefix = "あなたは優秀な議事録作成アシスタントです。"
)

// phase 描述一次结构化抽取
type phase struct {
	name        string
	instruction string
	decode      func(raw string) ([]byte, error)
}

var phases = []phase{
	{
		name:        "phase1",
		instruction: "以下の文字起こしから「議事の要点」を日本語で箇条書き（最大10項目）にまとめ、以下のJSON形式で返してください。\n{\"key_points\": [\"要点1\", \"要点2\"]}",
		decode:      decodeKeyPoints,
	},
	{
		name:        "phase2",
		instruction: "以下の文字起こしを論理的な章立て（アジェンダ）に分割し、各章タイトルを生成してください。JSON形式:\n{\"sections\": [{\"title\": \"章タイトル\", \"summary\": \"章の要約\"}]}",
		decode:      decodeSections,
	},
	{
		name:        "phase3",
		instruction: "以下の文字起こしを話者ごとにまとめ、各話者ごとに発言要約を作成し、重要ポイントを抽出してください。JSON形式:\n{\"speakers\": [{\"name\": \"話者名\", \"summary\": \"発言要約\"}]}",
		decode:      decodeSpeakers,
	},
}

func metaLines(m model.TaskMetadata) [][2]string {
	var lines [][2]string
	add := func(k string, v *string) {
		if v != nil && strings.TrimSpace(*v) != "" {
			lines = append(lines, [2]string{k, *v})
		}
	}
	add("consultant_name", m.ConsultantName)
	add("company_name", m.CompanyName)
	add("company_type", m.CompanyType)
	add("company_problem", m.CompanyProblem)
	add("company_phase", m.CompanyPhase)
	add("meeting_date", m.MeetingDate)
	if m.MeetingCount != nil {
		lines = append(lines, [2]string{"meeting_count", strconv.Itoa(*m.MeetingCount)})
	}
	add("meeting_type", m.MeetingType)
	add("support_area", m.SupportArea)
	add("internal_sharing_items", m.InternalSharingItems)
	return lines
}

// metaPrompt 只列出有值的元数据，全部为空时返回空串
func metaPrompt(m model.TaskMetadata) string {
	lines := metaLines(m)
	if len(lines) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("以下はミーティングのメタ情報です:\n")
	for _, l := range lines {
		fmt.Fprintf(&b, "- %s: %s\n", l[0], l[1])
	}
	return b.String()
}

func phasePrompt(p phase, meta, transcript string) string {
	var b strings.Builder
	b.WriteString(assistantPrefix)
	if meta != "" {
		b.WriteString("\n")
		b.WriteString(meta)
	}
	b.WriteString("\n")
	b.WriteString(p.instruction)
	b.WriteString("\n--- 文字起こしここから ---\n")
	b.WriteString(transcript)
	b.WriteString("\n--- 文字起こしここまで ---")
	return b.String()
}

func consolidationPrompt(meta string, outputs [3][]byte) string {
	var b strings.Builder
	b.WriteString("あなたはプロのコンサルタントです。与えられたフェーズ1-3の結果をもとに、ミーティング議事録を日本語で1000字以内のMarkdownにまとめてください。\n\n")
	b.WriteString("## メタ情報\n")
	if meta == "" {
		b.WriteString("なし\n")
	} else {
		b.WriteString(meta)
	}
	for i, title := range []string{"## フェーズ1 要点", "## フェーズ2 章立て", "## フェーズ3 話者別まとめ"} {
		b.WriteString("\n")
		b.WriteString(title)
		b.WriteString("\n")
		b.Write(outputs[i])
		b.WriteString("\n")
	}
	b.WriteString("\n## 出力フォーマット\n")
	b.WriteString("- タイトル行として \"" + summaryHeading + "\" を含める\n")
	b.WriteString("- 適切なMarkdown見出しを用いる\n")
	b.WriteString("- 1000字以内に収める\n")
	return b.String()
}

// truncateTail 超出预算时保留结尾部分
func truncateTail(s string, maxTokens int) string {
	if maxTokens <= 0 {
		return s
	}
	limit := maxTokens * charsPerToken
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[len(runes)-limit:])
}

// normalizeSummary 去掉代码围栏，并保证以固定标题开头
func normalizeSummary(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = ""
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
	}

	first, rest, _ := strings.Cut(s, "\n")
	switch {
	case strings.TrimSpace(first) == summaryHeading:
		return s
	case strings.HasPrefix(first, "# "):
		return summaryHeading + "\n" + rest
	case s == "":
		return summaryHeading
	}
	return summaryHeading + "\n\n" + s
}
