/*
Package mapfile encodes decompiled level geometry as a Radiant (Quake 3 style)
ASCII map document.

Each entity becomes a commented, brace-delimited block of "key" "value" lines
followed by its brushes. Convex brushes are written as one plane per side,
patches as patchDef2 blocks and terrain as terrainDef blocks. All numbers go
through an explicit NumberFormat so output is identical on every host.
*/
package mapfile
