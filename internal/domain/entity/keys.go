package entity

import (
	"fmt"
	"strconv"
	"strings"
)

// KV 键格式，与历史数据兼容，不可变更
const (
	KeyPlot     = "plot"
	KeySelected = "selected"
	KeyCoverSeq = "img:cover:seq"
)

// KeyBeatPlan 返回某章节拍计划的键，如 beats_ch2
func KeyBeatPlan(chapter int) string {
	return fmt.Sprintf("beats_ch%d", chapter)
}

// KeyBeatText 返回某节拍散文的键，如 ch2_beat_11
func KeyBeatText(chapter, beatIndex int) string {
	return fmt.Sprintf("ch%d_beat_%d", chapter, beatIndex)
}

// KeyContinuity 返回某章连续性胶囊的键，如 ch2_continuity
func KeyContinuity(chapter int) string {
	return fmt.Sprintf("ch%d_continuity", chapter)
}

// BeatTextKeyPrefix 返回某章节拍散文键的公共前缀
func BeatTextKeyPrefix(chapter int) string {
	return fmt.Sprintf("ch%d_beat_", chapter)
}

// ParseBeatIndex 从节拍散文键解析数字下标
// 下标比较必须基于解析后的整数，字典序会把 ch1_beat_10 排在 ch1_beat_2 之前
func ParseBeatIndex(key string, chapter int) (int, bool) {
	prefix := BeatTextKeyPrefix(chapter)
	if !strings.HasPrefix(key, prefix) {
		return 0, false
	}
	idx, err := strconv.Atoi(key[len(prefix):])
	if err != nil || idx < 0 {
		return 0, false
	}
	return idx, true
}
