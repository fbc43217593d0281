package analyzer

import (
	"fmt"
	"strings"
)

// Keyword severities. Negative entries use 严重/中等/轻微, positive entries
// use 强/中等/轻微; 中等 and 轻微 are shared between the two tables.
const (
	sevSevere   = "严重"
	sevModerate = "中等"
	sevMild     = "轻微"
	sevStrong   = "强"
)

type sentimentKeyword struct {
	word   string
	weight string
}

// Scan order matters: the veto detail lines and the "top 3" positive hits
// follow table order, which is part of the message contract.
var negativeKeywords = []sentimentKeyword{
	// financials
	{"造假", sevSevere}, {"财务造假", sevSevere}, {"虚增利润", sevSevere}, {"财务违规", sevSevere},
	{"亏损", sevModerate}, {"业绩下滑", sevModerate}, {"业绩暴雷", sevSevere},
	{"债务", sevModerate}, {"债务违约", sevSevere}, {"资不抵债", sevSevere},
	// regulatory
	{"调查", sevSevere}, {"立案", sevSevere}, {"立案调查", sevSevere},
	{"处罚", sevModerate}, {"罚款", sevModerate}, {"监管", sevMild},
	{"退市", sevSevere}, {"退市风险", sevSevere}, {"ST", sevSevere},
	{"违规", sevModerate}, {"违规担保", sevSevere}, {"内幕交易", sevSevere},
	// litigation
	{"诉讼", sevModerate}, {"起诉", sevModerate}, {"被诉", sevModerate},
	{"官司", sevMild}, {"纠纷", sevMild},
	// operations
	{"停产", sevSevere}, {"停产整顿", sevSevere},
	{"倒闭", sevSevere}, {"破产", sevSevere}, {"破产重整", sevSevere},
	{"裁员", sevModerate}, {"裁员风波", sevModerate},
	// policy
	{"政策", sevMild}, {"政策风险", sevModerate},
	{"监管收紧", sevModerate}, {"加强监管", sevModerate},
	// other
	{"暴跌", sevModerate}, {"大跌", sevMild},
	{"风险", sevMild}, {"警示", sevMild}, {"风险提示", sevMild},
}

var positiveKeywords = []sentimentKeyword{
	// earnings
	{"增长", sevMild}, {"业绩增长", sevModerate}, {"业绩超预期", sevStrong},
	{"大增", sevModerate}, {"暴增", sevStrong}, {"大涨", sevModerate},
	// capital moves
	{"回购", sevStrong}, {"股份回购", sevStrong}, {"增持", sevStrong},
	{"重大合同", sevModerate}, {"中标", sevModerate}, {"订单", sevMild},
	// approvals
	{"获批", sevModerate}, {"认证", sevModerate}, {"突破", sevModerate},
	{"独家", sevModerate}, {"首发", sevModerate}, {"首创", sevModerate},
	// dividends
	{"分红", sevMild}, {"派息", sevMild}, {"高送转", sevModerate},
	// institutional interest
	{"调研", sevMild}, {"机构调研", sevModerate},
}

type sentimentVerdict struct {
	Result  string
	Score   int
	Veto    bool
	Reasons []string
	Risks   []string
}

// scanSentiment matches both keyword tables against the news text by
// substring. Any severe negative, or three negatives of any weight, vetoes
// the buy. Otherwise two or more strong/moderate positives add 5 points,
// a single one adds 2, and leftover mild negatives become a risk note.
func scanSentiment(text string) sentimentVerdict {
	var negatives, positives []sentimentKeyword
	for _, kw := range negativeKeywords {
		if strings.Contains(text, kw.word) {
			negatives = append(negatives, kw)
		}
	}
	for _, kw := range positiveKeywords {
		if strings.Contains(text, kw.word) {
			positives = append(positives, kw)
		}
	}

	severe := false
	for _, kw := range negatives {
		if kw.weight == sevSevere {
			severe = true
			break
		}
	}

	var v sentimentVerdict
	if severe || len(negatives) >= 3 {
		v.Result = "重大利空"
		v.Veto = true
		v.Risks = append(v.Risks, "🚨 舆情过滤：发现重大利空新闻")
		for _, kw := range negatives {
			if kw.weight == sevSevere {
				v.Risks = append(v.Risks, fmt.Sprintf("   - %s（%s）", kw.word, kw.weight))
			}
		}
		return v
	}

	if len(positives) > 0 {
		strong := 0
		for _, kw := range positives {
			if kw.weight == sevStrong || kw.weight == sevModerate {
				strong++
			}
		}
		switch {
		case strong >= 2:
			v.Result = "明显利好"
			v.Score = 5
			v.Reasons = append(v.Reasons, "✅ 舆情加分：多条利好消息")
			shown := positives
			if len(shown) > 3 {
				shown = shown[:3]
			}
			for _, kw := range shown {
				if kw.weight == sevStrong || kw.weight == sevModerate {
					v.Reasons = append(v.Reasons, "   - "+kw.word)
				}
			}
			return v
		case strong == 1:
			v.Result = "轻微利好"
			v.Score = 2
			v.Reasons = append(v.Reasons, "✅ 舆情加分：有利好消息")
			return v
		}
	}

	if len(negatives) > 0 {
		v.Result = "中性偏空"
		v.Risks = append(v.Risks, "⚠️ 舆情提示：发现轻微负面消息")
		return v
	}
	v.Result = "中性"
	return v
}
