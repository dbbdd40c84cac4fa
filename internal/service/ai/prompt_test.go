package ai_test

import (
	"strings"
	"testing"

	"github.com/wowinn/acg-ai/internal/model/character"
	chatModel "github.com/wowinn/acg-ai/internal/model/chat"
	"github.com/wowinn/acg-ai/internal/service/ai"
)

func sampleCharacter() character.Character {
	return character.Character{
		ID:          "rem",
		Name:        "雷姆",
		NameEN:      "Rem",
		Series:      "Re:从零开始的异世界生活",
		Category:    character.CategoryAnimation,
		Personality: "温柔体贴",
		Active:      true,
	}
}

func sampleWindow() []chatModel.Message {
	return []chatModel.Message{
		{Role: chatModel.RoleUser, Content: "你好"},
		{Role: chatModel.RoleAssistant, Content: "你好呀"},
	}
}

func TestBuildCharacterPromptDeterministic(t *testing.T) {
	c := sampleCharacter()
	window := sampleWindow()

	first := ai.BuildCharacterPrompt(c, window, "今天天气怎么样？")
	second := ai.BuildCharacterPrompt(c, window, "今天天气怎么样？")

	if first != second {
		t.Fatal("prompt rendering must be byte-identical for identical inputs")
	}
}

func TestBuildCharacterPromptOptionalFields(t *testing.T) {
	c := sampleCharacter()
	rendered := ai.BuildCharacterPrompt(c, nil, "hi")

	for _, want := range []string{
		"你正在扮演雷姆这个角色。",
		"- 姓名: 雷姆",
		"- 作品: Re:从零开始的异世界生活",
		"- 类型: Animation",
		"- 英文名: Rem",
		"性格特点: 温柔体贴",
	} {
		if !strings.Contains(rendered, want) {
			t.Fatalf("prompt missing %q:\n%s", want, rendered)
		}
	}

	// 未填写的可选字段不渲染，也不渲染空占位
	for _, absent := range []string{"日文名", "角色描述", "能力/技能", "背景故事", "声优"} {
		if strings.Contains(rendered, absent) {
			t.Fatalf("prompt should omit unpopulated field %q:\n%s", absent, rendered)
		}
	}
}

func TestBuildCharacterPromptHistoryAndCue(t *testing.T) {
	c := sampleCharacter()
	rendered := ai.BuildCharacterPrompt(c, sampleWindow(), "记得我吗")

	historyIdx := strings.Index(rendered, "对话历史:")
	if historyIdx < 0 {
		t.Fatalf("missing history section:\n%s", rendered)
	}
	userIdx := strings.Index(rendered, "用户: 你好\n")
	assistantIdx := strings.Index(rendered, "雷姆: 你好呀")
	if userIdx < historyIdx || assistantIdx < userIdx {
		t.Fatalf("history lines out of order:\n%s", rendered)
	}

	if !strings.Contains(rendered, "用户: 记得我吗") {
		t.Fatalf("missing new user message:\n%s", rendered)
	}
	if !strings.HasSuffix(rendered, "雷姆:") {
		t.Fatalf("prompt must end with the character reply cue:\n%s", rendered)
	}
}

func TestBuildCharacterPromptEmptyHistoryMarker(t *testing.T) {
	rendered := ai.BuildCharacterPrompt(sampleCharacter(), nil, "hi")
	if !strings.Contains(rendered, "对话历史:\n无\n") {
		t.Fatalf("empty window must render the 无 marker:\n%s", rendered)
	}
}

func TestBuildGeneralPrompt(t *testing.T) {
	window := sampleWindow()
	rendered := ai.BuildGeneralPrompt(window, "推荐一部动画")

	if !strings.Contains(rendered, "你是一个专业的AI助手") {
		t.Fatalf("missing assistant preamble:\n%s", rendered)
	}
	if !strings.Contains(rendered, "AI助手: 你好呀") {
		t.Fatalf("assistant history lines must use the AI助手 label:\n%s", rendered)
	}
	if !strings.HasSuffix(rendered, "AI助手:") {
		t.Fatalf("prompt must end with the assistant reply cue:\n%s", rendered)
	}

	if again := ai.BuildGeneralPrompt(window, "推荐一部动画"); again != rendered {
		t.Fatal("general prompt rendering must be deterministic")
	}
}

func TestBuildGeneralPromptEmptyHistory(t *testing.T) {
	rendered := ai.BuildGeneralPrompt(nil, "hello")
	if !strings.Contains(rendered, "对话历史:\n无\n") {
		t.Fatalf("empty window must render the 无 marker:\n%s", rendered)
	}
}
