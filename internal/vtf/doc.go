// Package vtf decodes Valve Texture Format containers: the fixed-offset
// header, the low-resolution thumbnail and the main mip/frame chain, all
// left in their native pixel encoding.
package vtf
