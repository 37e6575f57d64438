/*
Package nodeid provides a structured representation for the identifiers used
throughout a pass: graph node ids and the locations attached to diagnostics.

The canonical format is a dot-separated sequence of segments where any segment
may carry an index, e.g. `pipeline.pl1[0]` for the first step of pipeline pl1
or `actions[2].add_scenes.s1.plots.p1` for a location inside the action tree.
*/
package nodeid
