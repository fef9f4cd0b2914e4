package core

import "duet/internal/ext"

// ResponderCategory задает корневую точку расширения для всех responder'ов.
// Транспорты объявляют подкатегории: "responder/cmd", "responder/web".
const ResponderCategory ext.Category = "responder"
