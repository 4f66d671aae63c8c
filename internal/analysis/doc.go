// Package analysis runs the content analysis stage: it selects the most
// important transcript segments, asks the text-generation backend for
// educational keypoints, and enriches each keypoint with locally computed
// pedagogy metrics (related segments, conceptual density, cognitive load and
// learning time estimates).
package analysis
