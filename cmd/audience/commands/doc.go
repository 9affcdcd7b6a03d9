// Package commands определяет CLI audience и связывает зависимости для подкоманд.
//
// Команды
//
//   - build   Загрузить идентификаторы, собрать сегмент и аудиторию, выполнить запрос (по умолчанию)
//   - list    Вывести все сегменты и аудитории
//   - usage   Вывести статистику использования
//   - delete  Удалить настроенные аудиторию и сегменты, с --force удалить все
//
// Корневая команда загружает конфигурацию, настраивает логгер, трассировку и
// OAuth-клиент до запуска любой подкоманды.
package commands
