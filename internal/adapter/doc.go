// Package adapter binds test-framework vocabularies to the suite builder.
//
// Adapters differ only in the names they expose (describe/it versus
// suite/test), whether a bootstrap phase runs before the fixture, and how
// faults raised by case bodies are classified. Registration, scheduling and
// reporting are shared.
package adapter
