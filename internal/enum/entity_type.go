package enum

type EntityType string

const (
	PROCESSED_EMAIL EntityType = "PROCESSED_EMAIL"
	NEWSLETTER      EntityType = "NEWSLETTER"
)

func (entityType EntityType) String() string {
	return string(entityType)
}

func GetEntityType(s string) EntityType {
	return EntityType(s)
}
