// Package errors provides the classified error primitives used across the
// gallery builder.
//
// Key features:
//   - ErrorCategory: broad classification (template_parse, missing_variable,
//     media_probe, conversion, incompatible_format, filesystem, ...)
//   - ErrorSeverity: impact level; warnings are recoverable per asset
//   - RetryStrategy: whether the operator must act or the next run redoes it
//   - ClassifiedError: structured error with category, severity, and context
//   - ErrorBuilder: fluent API for creating classified errors
//   - CLI adapter for exit codes and presentation
//
// Example usage:
//
//	err := errors.MissingVariableError("variable not bound").
//		WithContext("tag", "var width").
//		WithContext("line", 12).
//		Build()
package errors
