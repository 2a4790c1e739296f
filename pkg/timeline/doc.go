// Package timeline computes the dated transitions of a subscription from a
// catalog plan recipe.
//
// NextDate is the alignment calculator: it adds a calendar duration to a
// phase start. Months and years follow the calendar and clamp to the end of
// shorter months, so a phase starting on January 31 with a one month
// duration ends on the last day of February.
//
// Builder walks a plan recipe from its initial phase and emits one entry per
// phase boundary until it reaches an unlimited phase or the maximum recipe
// length. The output depends only on its inputs; no wall clock is read.
package timeline
