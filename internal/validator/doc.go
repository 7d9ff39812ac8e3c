// Package validator inspects a store topology for forbidden or suspicious
// wiring and reports advisory findings. Findings never block an operation.
package validator
