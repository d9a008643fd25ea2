package backend

// Operation pairs an x-action name with its query text. Every call site
// goes through this registry so the query a handler sends and the shape it
// decodes cannot drift apart.
type Operation struct {
	Name  string
	Query string
}

const listingFields = `
        id
        name
        description
        origin
        roastLevel
        price
        currency
        weight
        weightUnit
        isAvailable
        stockQuantity
        createdAt
        updatedAt
        categories {
          id
          icon
          description
          name
        }
        seller {
          id
          name
          photoUrl
        }
        medias {
          id
          mediaUrl
          mediaType
        }`

var (
	opListCoffees = Operation{
		Name: "listCoffees",
		Query: `query ListCoffees {
      listCoffees {
        items {` + listingFields + `
        }
        nextToken
      }
    }`,
	}

	opListCoffeesByUser = Operation{
		Name: "listCoffeesByUserId",
		Query: `query ListCoffeesByUserId($userId: String!, $limit: Int = 10, $nextToken: String = "") {
      listCoffeesByUserId(userId: $userId, limit: $limit, nextToken: $nextToken) {
        items {` + listingFields + `
        }
        nextToken
      }
    }`,
	}

	opListCoffeesByRating = Operation{
		Name: "listCoffeeByRating",
		Query: `query ListCoffeeByRating($limit: Int = 10, $minRating: Float = 1.5, $nextToken: String = "") {
      listCoffeeByRating(limit: $limit, minRating: $minRating, nextToken: $nextToken) {
        items {` + listingFields + `
        }
        nextToken
      }
    }`,
	}

	opCreateCoffee = Operation{
		Name: "createCoffee",
		Query: `mutation CreateCoffee($coffee: CoffeeInput!) {
      createCoffee(coffee: $coffee) {` + listingFields + `
      }
    }`,
	}

	opUpdateCoffee = Operation{
		Name: "updateCoffee",
		Query: `mutation UpdateCoffee($coffee: CoffeeInput!) {
      updateCoffee(coffee: $coffee) {` + listingFields + `
      }
    }`,
	}

	opListAllCategories = Operation{
		Name: "listAllCategories",
		Query: `query ListAllCategories {
      listAllCategories {
        id
        icon
        description
        name
      }
    }`,
	}

	opListCategoriesByName = Operation{
		Name: "listCategoriesByName",
		Query: `query ListCategoriesByName($categoryName: String!) {
      listCategoriesByName(categoryName: $categoryName) {
        id
        icon
        description
        name
      }
    }`,
	}

	opGetUserByID = Operation{
		Name: "getUserById",
		Query: `query GetUserById($userId: String!) {
      getUserById(userId: $userId) {
        id
        email
        name
        photoUrl
        role
        createdAt
        updatedAt
      }
    }`,
	}

	opUpdateUser = Operation{
		Name: "updateUser",
		Query: `mutation UpdateUser($user: UserInput!) {
      updateUser(user: $user) {
        id
        email
        name
        photoUrl
        role
        createdAt
        updatedAt
      }
    }`,
	}
)
