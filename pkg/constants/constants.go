package constants

// Флаги активности записей ('Y'/'N'), как они хранятся в БД.
const (
	FlagYes = "Y"
	FlagNo  = "N"
)

// IsActiveFlag нормализует флаг: пустое значение трактуется как 'Y'.
func IsActiveFlag(flag string) string {
	if flag == FlagNo {
		return FlagNo
	}
	return FlagYes
}

// BoolToFlag переводит bool в 'Y'/'N'.
func BoolToFlag(v bool) string {
	if v {
		return FlagYes
	}
	return FlagNo
}
