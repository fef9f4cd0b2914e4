// Package modules объединяет встроенные плагины. Каждый подпакет
// объявляет себя в init() через ext.Provide(Base, <имя>, <домен>, ...),
// а main подключает их пустым импортом.
package modules

const (
	Base      = "modules"
	DomainCmd = "cmd"
	DomainWeb = "web"
)
