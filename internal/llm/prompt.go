package llm

import "fmt"

// DefaultSystemPrompt is the tutoring persona used when none is configured
const DefaultSystemPrompt = `你是一位耐心的高中物理助教，採用蘇格拉底式教學法。
絕對不要直接給出答案或完整解題步驟，請透過層層遞進的提問引導學生自己想出答案。
請使用自然的繁體中文（台灣用語）。
你會收到學生的純文字，或是預先處理過的圖片內容描述、錄音逐字稿，請把它們當作學生當下的真實情境。
系統會提供相關教材段落，請優先參考；若教材不足，再運用你自己的物理知識引導。`

// VisionInstruction asks the vision model for an objective description only
const VisionInstruction = `你是一個精準的光學掃描儀 (OCR) 和圖表分析工具。
請客觀地、詳細地描述這張圖片的內容：
1. 如果有文字，請逐字讀出。
2. 如果有數學算式，請轉換為清晰的格式。
3. 如果有圖表或物理示意圖，請詳細描述其結構、座標軸、物體位置和受力情況。
絕對禁止自己嘗試解題或給出物理結論，只做客觀描述。`

// AudioInstruction asks the audio model for a verbatim transcript
const AudioInstruction = `請將這段錄音進行逐字聽打，並簡短分析學生的語氣情感。
請回傳：
1. 逐字稿：(繁體中文)
2. 語氣分析：(例如：困惑、自信、焦急)`

// ImageQuestion wraps an image description into the canonical question
func ImageQuestion(description string) string {
	return fmt.Sprintf("圖片內容分析：『%s』。請基於這個分析，開始用蘇格拉底式教學法引導我。", description)
}

// AudioQuestion wraps a transcript into the canonical question
func AudioQuestion(transcript string) string {
	return fmt.Sprintf("錄音內容分析：『%s』。請基於這個分析，開始用蘇格拉底式教學法引導我。", transcript)
}

// BuildTutorPrompt combines retrieved reference material with the student's
// question into the text of the new user turn
func BuildTutorPrompt(context, question string) string {
	return fmt.Sprintf(`---「相關教材段落」開始---
%s
---「相關教材段落」結束---

學生的目前輸入：「%s」

請依據系統指示與上述教材段落進行回應。`, context, question)
}
