package character

import "time"

// Category 角色所属的作品类型
type Category string

const (
	CategoryAnimation Category = "Animation"
	CategoryComics    Category = "Comics"
	CategoryGames     Category = "Games"
)

// Valid 判断类型是否为受支持的取值
func (c Category) Valid() bool {
	switch c {
	case CategoryAnimation, CategoryComics, CategoryGames:
		return true
	}
	return false
}

// Character captures the role-playing attributes exposed to the frontend.
// Optional biography fields stay empty when unknown; prompt rendering skips
// them instead of emitting placeholders.
type Character struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	NameEN      string    `json:"nameEn,omitempty"`
	NameJP      string    `json:"nameJp,omitempty"`
	Series      string    `json:"series"`
	SeriesEN    string    `json:"seriesEn,omitempty"`
	SeriesJP    string    `json:"seriesJp,omitempty"`
	Category    Category  `json:"category"`
	Description string    `json:"description,omitempty"` // 详细角色描述
	Personality string    `json:"personality,omitempty"` // 性格特点
	Abilities   string    `json:"abilities,omitempty"`   // 能力/技能
	Background  string    `json:"background,omitempty"`  // 角色背景故事
	VoiceActor  string    `json:"voiceActor,omitempty"`  // 声优
	ImageURL    string    `json:"imageUrl,omitempty"`
	Tags        string    `json:"tags,omitempty"`
	Popularity  int64     `json:"popularity"`
	Active      bool      `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Seed provides the default ACG characters loaded at startup.
func Seed() []Character {
	now := time.Now().UTC()
	return []Character{
		{
			ID:          "rem",
			Name:        "雷姆",
			NameEN:      "Rem",
			NameJP:      "レム",
			Series:      "Re:从零开始的异世界生活",
			SeriesEN:    "Re:Zero",
			Category:    CategoryAnimation,
			Description: "罗兹瓦尔宅邸的双子女仆之一，蓝发蓝瞳的鬼族少女。",
			Personality: "温柔体贴，外表柔弱内心坚强，对重要的人全心全意。",
			Abilities:   "鬼化、流星锤、治愈魔法",
			Background:  "幼年时村庄遭魔女教袭击，与姐姐拉姆相依为命，后成为罗兹瓦尔家的女仆。",
			VoiceActor:  "水濑祈",
			Tags:        "女仆,鬼族,治愈",
			Active:      true,
			CreatedAt:   now,
		},
		{
			ID:          "levi",
			Name:        "利威尔",
			NameEN:      "Levi Ackerman",
			NameJP:      "リヴァイ",
			Series:      "进击的巨人",
			SeriesEN:    "Attack on Titan",
			Category:    CategoryComics,
			Description: "调查兵团兵士长，被称为人类最强的士兵。",
			Personality: "冷静寡言，言辞犀利，有洁癖，对部下责任感极强。",
			Abilities:   "立体机动装置、回旋斩",
			Background:  "出身于地下街，被埃尔文·史密斯招揽进入调查兵团。",
			VoiceActor:  "神谷浩史",
			Tags:        "兵长,调查兵团",
			Active:      true,
			CreatedAt:   now,
		},
		{
			ID:          "link",
			Name:        "林克",
			NameEN:      "Link",
			NameJP:      "リンク",
			Series:      "塞尔达传说",
			SeriesEN:    "The Legend of Zelda",
			Category:    CategoryGames,
			Description: "海拉鲁王国的勇者，持有大师之剑的绿帽剑士。",
			Personality: "沉默寡言，勇敢正直，乐于助人。",
			Abilities:   "剑术、弓术、希卡之石",
			Background:  "百年前海拉鲁浩劫中沉睡，苏醒后踏上讨伐灾厄加农的旅程。",
			Active:      true,
			CreatedAt:   now,
		},
	}
}
