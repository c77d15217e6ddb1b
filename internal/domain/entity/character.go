package entity

// CharacterKind 角色类别
type CharacterKind string

const (
	CharacterKindProtagonist CharacterKind = "protagonist"
	CharacterKindAntagonist  CharacterKind = "antagonist"
	CharacterKindSupporting  CharacterKind = "supporting"
)

// IsValidCharacterKind 检查角色类别是否合法
func IsValidCharacterKind(kind string) bool {
	switch CharacterKind(kind) {
	case CharacterKindProtagonist, CharacterKindAntagonist, CharacterKindSupporting:
		return true
	}
	return false
}

// Character 角色表行
type Character struct {
	ID        int64         `json:"id" gorm:"primaryKey;autoIncrement"`
	ProjectID string        `json:"project_id" gorm:"index;not null"`
	Kind      CharacterKind `json:"kind" gorm:"not null"`
	Name      string        `json:"name" gorm:"not null"`
	Role      string        `json:"role"`
	Bio       string        `json:"bio"`
}

// TableName 指定表名
func (Character) TableName() string {
	return "characters"
}

// CharacterCard LLM 生成的角色卡
type CharacterCard struct {
	Name string `json:"name"`
	Role string `json:"role"`
	Bio  string `json:"bio"`
}

// CharacterRoster 按类别分组的完整角色阵容
type CharacterRoster struct {
	Protagonists []CharacterCard `json:"protagonists"`
	Antagonists  []CharacterCard `json:"antagonists"`
	Supporting   []CharacterCard `json:"supporting"`
}

// Flatten 把分组阵容展开为角色行，保持 类别内顺序
func (r *CharacterRoster) Flatten(projectID string) []*Character {
	var rows []*Character
	appendGroup := func(kind CharacterKind, cards []CharacterCard) {
		for _, c := range cards {
			rows = append(rows, &Character{
				ProjectID: projectID,
				Kind:      kind,
				Name:      c.Name,
				Role:      c.Role,
				Bio:       c.Bio,
			})
		}
	}
	appendGroup(CharacterKindProtagonist, r.Protagonists)
	appendGroup(CharacterKindAntagonist, r.Antagonists)
	appendGroup(CharacterKindSupporting, r.Supporting)
	return rows
}

// GroupedCharacters 已落库角色的分组视图
type GroupedCharacters struct {
	Protagonists []*Character `json:"protagonists"`
	Antagonists  []*Character `json:"antagonists"`
	Supporting   []*Character `json:"supporting"`
}

// CharacterPatch 角色部分更新
// 仅 name/role/bio/kind 可被修改
type CharacterPatch struct {
	Name *string `json:"name,omitempty"`
	Role *string `json:"role,omitempty"`
	Bio  *string `json:"bio,omitempty"`
	Kind *string `json:"kind,omitempty"`
}

// IsEmpty 检查补丁是否不含任何可识别字段
func (p *CharacterPatch) IsEmpty() bool {
	return p.Name == nil && p.Role == nil && p.Bio == nil && p.Kind == nil
}
