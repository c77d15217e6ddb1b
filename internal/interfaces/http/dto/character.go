package dto

import "infinite-book-api/internal/domain/entity"

// UpdateCharacterRequest 角色部分更新请求
// 所有字段可选，至少给出一个才会写库
type UpdateCharacterRequest struct {
	Name *string `json:"name,omitempty"`
	Role *string `json:"role,omitempty"`
	Bio  *string `json:"bio,omitempty"`
	Kind *string `json:"kind,omitempty"`
}

// ToPatch 转换为领域补丁
func (r *UpdateCharacterRequest) ToPatch() *entity.CharacterPatch {
	return &entity.CharacterPatch{
		Name: r.Name,
		Role: r.Role,
		Bio:  r.Bio,
		Kind: r.Kind,
	}
}
