package dataset

// JoinSuperclasses resolves the superclass of every class id.
// Position i of the result holds the superclass of class id i+1.
//
// The mapping must name exactly as many classes as were discovered; a mapping
// with extra names fails even when every discovered class is present.
func JoinSuperclasses(classes *ClassIndex, supers *SuperclassMap) ([]int32, error) {
	if classes.Len() != supers.Len() {
		return nil, &CardinalityError{Classes: classes.Len(), Mapped: supers.Len()}
	}

	idxToSuper := make([]int32, classes.Len())
	for i, name := range classes.Names() {
		superID, ok := supers.ID(name)
		if !ok {
			return nil, &ClassError{Kind: ErrMissingSuperclass, Class: name}
		}
		idxToSuper[i] = int32(superID)
	}
	return idxToSuper, nil
}
