package services

// MaxUsersPerSegmentUpload - лимит сервиса на число пользователей в одном запросе добавления.
const MaxUsersPerSegmentUpload = 100_000

// Split делит ids на порции не больше maxSize с сохранением порядка.
// Пустой вход дает ноль порций.
func Split(ids []string, maxSize int) [][]string {
	if maxSize <= 0 {
		panic("services: split size must be positive")
	}
	if len(ids) == 0 {
		return nil
	}
	chunks := make([][]string, 0, (len(ids)+maxSize-1)/maxSize)
	for start := 0; start < len(ids); start += maxSize {
		end := min(start+maxSize, len(ids))
		chunks = append(chunks, ids[start:end:end])
	}
	return chunks
}
