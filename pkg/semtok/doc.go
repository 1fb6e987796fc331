/*
Package semtok translates semantic token streams produced by embedded
language servers into the legend the bridge advertises to the editor.

	provider data []uint32
	        |
	     Decode          deltaLine/deltaStart -> absolute line/start
	        |
	      Remap          type index by name, modifier bits by name,
	        |            unknown types dropped, unknown bits cleared
	   RemapToHost       virtual line -> host line, preamble dropped
	        |
	     Encode          absolute -> delta, sorted by line/start
	        |
	editor data []uint32

Each token occupies five integers on the wire:

	[deltaLine, deltaStart, length, tokenType, tokenModifiers]
*/
package semtok
