package domain

import "strings"

// Stage is a lead's position in the sales pipeline.
type Stage string

const (
	StageFirstContact Stage = "first_contact"
	StageQuoted       Stage = "quoted"
	StageSampled      Stage = "sampled"
	StageNegotiating  Stage = "negotiating"
	StageSigned       Stage = "signed"
	StageCompleted    Stage = "completed"
	StageLost         Stage = "lost"
	// StageEscalated is set only by the staleness sweep.
	StageEscalated Stage = "escalated"
)

var stageOrder = []Stage{
	StageFirstContact,
	StageQuoted,
	StageSampled,
	StageNegotiating,
	StageSigned,
	StageCompleted,
	StageLost,
	StageEscalated,
}

var stageLabels = map[Stage]string{
	StageFirstContact: "初次接触",
	StageQuoted:       "方案报价",
	StageSampled:      "样品测试",
	StageNegotiating:  "价格谈判",
	StageSigned:       "已签约",
	StageCompleted:    "已完工",
	StageLost:         "已流失",
	StageEscalated:    "超期移交",
}

// Stages returns the pipeline vocabulary in order.
func Stages() []Stage {
	return append([]Stage(nil), stageOrder...)
}

// Label returns the operator-facing label.
func (s Stage) Label() string {
	if label, ok := stageLabels[s]; ok {
		return label
	}
	return string(s)
}

// Valid reports whether s belongs to the vocabulary.
func (s Stage) Valid() bool {
	_, ok := stageLabels[s]
	return ok
}

// Rank is the position of s in the pipeline, or -1.
func (s Stage) Rank() int {
	for i, candidate := range stageOrder {
		if candidate == s {
			return i
		}
	}
	return -1
}

// ParseStage accepts a stage code or its localized label.
func ParseStage(raw string) (Stage, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if s := Stage(strings.ToLower(trimmed)); s.Valid() {
		return s, true
	}
	for s, label := range stageLabels {
		if label == trimmed {
			return s, true
		}
	}
	switch trimmed {
	case "报价":
		return StageQuoted, true
	case "谈判":
		return StageNegotiating, true
	case "签约":
		return StageSigned, true
	case "流失":
		return StageLost, true
	}
	return "", false
}
