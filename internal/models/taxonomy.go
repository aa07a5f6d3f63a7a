package models

// Tag is a shared label. Names are unique and never renamed.
type Tag struct {
	ID   string `json:"-" gorm:"primaryKey;type:varchar(36)"`
	Name string `json:"name" gorm:"uniqueIndex;type:varchar(100);not null"`
}

// Category has the same shape and rules as Tag.
type Category struct {
	ID   string `json:"-" gorm:"primaryKey;type:varchar(36)"`
	Name string `json:"name" gorm:"uniqueIndex;type:varchar(200);not null"`
}

func (t *Tag) EntityID() string      { return t.ID }
func (t *Tag) Assign(id, name string) { t.ID, t.Name = id, name }

func (c *Category) EntityID() string      { return c.ID }
func (c *Category) Assign(id, name string) { c.ID, c.Name = id, name }
