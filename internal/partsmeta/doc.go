// Package partsmeta mines part numbers and manufacturer names from
// extracted document text and detected tables.
//
// Part numbers are matched with a pattern table covering the common
// letter-digit families (LM317, STM32F103C8T6, 1N4148); manufacturers come
// from a built-in name list. Results land in a parts.json artifact and a
// compact metadata summary on the catalog row.
package partsmeta
