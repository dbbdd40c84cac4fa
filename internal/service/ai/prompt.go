package ai

import (
	"fmt"
	"strings"

	"github.com/wowinn/acg-ai/internal/model/character"
	"github.com/wowinn/acg-ai/internal/model/chat"
)

// generalAssistantLabel 通用模式下助手在对话历史与回复提示中的名字。
const generalAssistantLabel = "AI助手"

// BuildCharacterPrompt renders a role-establishing prompt for a character
// conversation. It is a pure function of its inputs: only populated optional
// fields appear in the render, the context window is emitted oldest first as
// speaker-labeled lines, and the output ends with a reply cue in the
// character's name.
func BuildCharacterPrompt(c character.Character, window []chat.Message, userMessage string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "你正在扮演%s这个角色。\n\n", c.Name)
	b.WriteString("基本信息:\n")
	fmt.Fprintf(&b, "- 姓名: %s\n", c.Name)
	fmt.Fprintf(&b, "- 作品: %s\n", c.Series)
	fmt.Fprintf(&b, "- 类型: %s\n", c.Category)
	if c.NameEN != "" {
		fmt.Fprintf(&b, "- 英文名: %s\n", c.NameEN)
	}
	if c.NameJP != "" {
		fmt.Fprintf(&b, "- 日文名: %s\n", c.NameJP)
	}
	if c.Description != "" {
		fmt.Fprintf(&b, "\n角色描述: %s\n", c.Description)
	}
	if c.Personality != "" {
		fmt.Fprintf(&b, "\n性格特点: %s\n", c.Personality)
	}
	if c.Abilities != "" {
		fmt.Fprintf(&b, "\n能力/技能: %s\n", c.Abilities)
	}
	if c.Background != "" {
		fmt.Fprintf(&b, "\n背景故事: %s\n", c.Background)
	}
	if c.VoiceActor != "" {
		fmt.Fprintf(&b, "\n声优: %s\n", c.VoiceActor)
	}

	fmt.Fprintf(&b, "\n请以%s的身份和语气回复用户的问题。保持角色的性格特点，使用符合角色设定的语言风格。\n", c.Name)
	b.WriteString("如果用户询问的内容超出了你的知识范围，请以角色的身份礼貌地表示不知道。\n")

	writeHistory(&b, window, c.Name)

	fmt.Fprintf(&b, "\n用户: %s\n", userMessage)
	fmt.Fprintf(&b, "\n%s:", c.Name)

	return b.String()
}

// BuildGeneralPrompt renders the assistant-mode prompt for sessions without a
// bound character.
func BuildGeneralPrompt(window []chat.Message, userMessage string) string {
	var b strings.Builder

	b.WriteString("你是一个专业的AI助手，擅长回答各种问题，包括ACG相关内容、技术问题、生活建议等。\n")
	b.WriteString("请用友好、专业的语气回复用户的问题。\n")

	writeHistory(&b, window, generalAssistantLabel)

	fmt.Fprintf(&b, "\n用户: %s\n", userMessage)
	fmt.Fprintf(&b, "\n%s:", generalAssistantLabel)

	return b.String()
}

// writeHistory 按时间顺序渲染上下文窗口，空窗口输出“无”标记。
func writeHistory(b *strings.Builder, window []chat.Message, assistantLabel string) {
	b.WriteString("\n对话历史:\n")

	lines := make([]string, 0, len(window))
	for _, msg := range window {
		switch msg.Role {
		case chat.RoleUser:
			lines = append(lines, "用户: "+msg.Content)
		case chat.RoleAssistant:
			lines = append(lines, assistantLabel+": "+msg.Content)
		}
	}

	if len(lines) == 0 {
		b.WriteString("无\n")
		return
	}
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")
}
