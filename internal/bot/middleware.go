package bot

func (b *Bot) withRecovery(handler func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()
	handler()
}

// isOperator reports whether the chat may issue commands.
func (b *Bot) isOperator(chatID int64) bool {
	return chatID != 0 && chatID == b.chatID
}
