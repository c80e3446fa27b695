// Package textutil sanitizes user-supplied names for filesystem use.
package textutil
