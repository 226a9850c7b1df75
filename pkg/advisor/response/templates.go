package response

import "accident-advisor-be/pkg/advisor/category"

// Fallback answers returned when generation fails after the retry. They
// keep the classified category's framing so the caller can still render a
// meaningful reply.
var degradedTemplates = map[category.Category]string{
	category.AccidentAnalysis: "죄송합니다. 일시적인 오류로 사고 분석을 완료하지 못했습니다. 잠시 후 사고 상황을 다시 말씀해 주시면 과실비율 분석을 도와드리겠습니다.",
	category.Precedent:        "죄송합니다. 일시적인 오류로 판례를 조회하지 못했습니다. 잠시 후 다시 질문해 주시면 관련 판례를 찾아드리겠습니다.",
	category.Law:              "죄송합니다. 일시적인 오류로 법률 정보를 가져오지 못했습니다. 잠시 후 다시 질문해 주시면 관련 조문을 안내해 드리겠습니다.",
	category.Terminology:      "죄송합니다. 일시적인 오류로 용어 설명을 완료하지 못했습니다. 잠시 후 다시 질문해 주시면 자세히 설명해 드리겠습니다.",
	category.General:          "죄송합니다. 일시적인 오류가 발생했습니다. 잠시 후 다시 시도해 주세요.",
}

// DegradedAnswer returns the templated apology for a category.
func DegradedAnswer(cat category.Category) string {
	if answer, ok := degradedTemplates[cat]; ok {
		return answer
	}
	return degradedTemplates[category.General]
}
