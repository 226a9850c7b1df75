package classify

import "accident-advisor-be/pkg/advisor/category"

// DefaultTable returns the built-in Korean keyword table. Callers that
// need a different vocabulary construct their own Table and pass it to
// NewClassifier.
func DefaultTable() Table {
	return Table{
		category.AccidentAnalysis: {
			High:   []string{"과실비율", "과실 비율", "교차로", "좌회전", "우회전", "추돌", "접촉사고", "차로변경", "끼어들기"},
			Medium: []string{"사고", "충돌", "신호위반", "주차장", "보행자", "횡단보도", "급정거"},
			Low:    []string{"차량", "운전", "도로", "신호"},
		},
		category.Precedent: {
			High:   []string{"판례", "대법원", "선고", "판결문"},
			Medium: []string{"판결", "법원", "항소", "상고", "재판"},
			Low:    []string{"사건"},
		},
		category.Law: {
			High:   []string{"도로교통법", "법조문", "몇 조", "조항"},
			Medium: []string{"법률", "법령", "조문", "규정", "처벌", "벌금", "범칙금", "면허"},
			Low:    []string{"법"},
		},
		category.Terminology: {
			High:   []string{"무슨 뜻", "용어", "정의가", "뜻이"},
			Medium: []string{"의미", "뜻", "정의", "무엇인가요", "이란"},
			Low:    []string{"설명"},
		},
		category.General: {
			High:   []string{"안녕하세요", "고맙습니다", "감사합니다"},
			Medium: []string{"안녕", "반가워"},
			Low:    nil,
		},
	}
}
