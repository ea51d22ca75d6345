// Package logger provides structured logging backed by zerolog.
//
// It supports JSON and console output, level configuration and
// component-scoped loggers with structured fields. A nil *Logger is valid
// and discards everything, so collaborators can take an optional logger.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.WithComponent("ocr")
//	log.Info("backend switched", logger.Fields(logger.FieldKind, "tesseract"))
package logger
