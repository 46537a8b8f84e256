// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing protocol stream lines and desk snapshots.
// They are not intended for production usage.
package testutil
