package prompt

import (
	"fmt"
	"strings"

	"accident-advisor-be/pkg/advisor/category"
	"accident-advisor-be/pkg/advisor/retrieval"
	"accident-advisor-be/pkg/advisor/session"
)

// Builder assembles the single generation prompt from the classified
// query, retrieved documents and recent conversation turns.
type Builder struct {
	query    string
	category category.Category
	document []retrieval.Document
	history  []session.Turn
	degraded bool
}

// NewBuilder creates a prompt builder for one query.
func NewBuilder(query string, cat category.Category, documents []retrieval.Document, history []session.Turn, degraded bool) *Builder {
	return &Builder{
		query:    query,
		category: cat,
		document: documents,
		history:  history,
		degraded: degraded,
	}
}

// Build produces the full prompt text.
func (b *Builder) Build() string {
	var prompt strings.Builder

	b.writeTask(&prompt)
	b.writeReferenceDocuments(&prompt)
	b.writeHistory(&prompt)
	b.writeGuidelines(&prompt)
	b.writeUserQuery(&prompt)

	return prompt.String()
}

var categoryTasks = map[category.Category]string{
	category.AccidentAnalysis: "당신은 교통사고 과실비율 분석 전문가입니다. 사고 상황을 단계적으로 분석하고 기본 과실비율과 가감 요소를 설명하세요.",
	category.Precedent:        "당신은 교통사고 판례 전문가입니다. 관련 판례의 사건번호, 법원, 판결 요지를 정확히 인용하여 설명하세요.",
	category.Law:              "당신은 도로교통법 전문가입니다. 관련 조문을 정확히 인용하고 일반인이 이해하기 쉽게 설명하세요.",
	category.Terminology:      "당신은 교통사고 법률 용어 전문가입니다. 용어의 정의를 명확히 설명하고 실제 사례에서 어떻게 쓰이는지 예를 들어 주세요.",
	category.General:          "당신은 교통사고 상담 챗봇입니다. 질문에 친절하고 정확하게 답하되, 교통사고 관련 주제로 안내하세요.",
}

func (b *Builder) writeTask(prompt *strings.Builder) {
	prompt.WriteString("<task>\n")
	prompt.WriteString(categoryTasks[b.category])
	prompt.WriteString("\n</task>\n\n")
}

func (b *Builder) writeReferenceDocuments(prompt *strings.Builder) {
	if len(b.document) == 0 {
		return
	}

	prompt.WriteString("<reference_documents>\n")
	for i, doc := range b.document {
		prompt.WriteString(fmt.Sprintf("[문서 %d]", i+1))
		if doc.Metadata.CaseNumber != "" {
			prompt.WriteString(" 사건번호: " + doc.Metadata.CaseNumber)
		}
		if doc.Metadata.Court != "" {
			prompt.WriteString(" 법원: " + doc.Metadata.Court)
		}
		if doc.Metadata.Article != "" {
			prompt.WriteString(" 조문: " + doc.Metadata.Article)
		}
		prompt.WriteString("\n")
		prompt.WriteString(doc.Content)
		prompt.WriteString("\n\n")
	}
	prompt.WriteString("</reference_documents>\n\n")
}

func (b *Builder) writeHistory(prompt *strings.Builder) {
	if len(b.history) == 0 {
		return
	}

	prompt.WriteString("<conversation_history>\n")
	for _, turn := range b.history {
		prompt.WriteString("사용자: " + turn.UserText + "\n")
		prompt.WriteString("상담사: " + turn.BotText + "\n")
	}
	prompt.WriteString("</conversation_history>\n\n")
}

func (b *Builder) writeGuidelines(prompt *strings.Builder) {
	prompt.WriteString("<guidelines>\n")
	if b.degraded || len(b.document) == 0 {
		prompt.WriteString("- 참고 문서를 찾지 못했습니다. 일반적인 지식으로 답하되, 구체적인 판례나 조문 확인이 필요하다는 점을 반드시 안내하세요.\n")
	} else {
		prompt.WriteString("- 반드시 참고 문서에 근거하여 답하고, 인용한 문서 번호를 표시하세요.\n")
		prompt.WriteString("- 참고 문서에 없는 내용은 추측하지 말고 모른다고 답하세요.\n")
	}
	prompt.WriteString("- 이전 대화의 맥락을 이어서 답하세요.\n")
	prompt.WriteString("- 법률 자문이 아닌 참고용 정보임을 필요시 안내하세요.\n")
	prompt.WriteString("</guidelines>\n\n")
}

func (b *Builder) writeUserQuery(prompt *strings.Builder) {
	prompt.WriteString("<question>\n")
	prompt.WriteString(b.query)
	prompt.WriteString("\n</question>\n")
}
