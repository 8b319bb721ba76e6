package container

// ResolutionDepth exposes the resolution-stack size to black-box tests so
// they can assert the stack is balanced after failed resolutions.
func ResolutionDepth(c *Container) int { return c.resolutionDepth() }
