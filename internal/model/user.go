package model

import "time"

// User represents an account record as stored in the `users` table together
// with its billing profile.  Each field corresponds to a column in the
// database.  The json tags are omitted here because these structs are
// primarily used internally by the repository layer; handlers define
// separate response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  FirstName    – billing first name.
//  LastName     – billing last name.
//  Address      – billing street address.
//  City         – billing city.
//  Zip          – billing postal code.
//  Country      – billing country.
//  Company      – optional company name (nil for individuals).
//  VATNumber    – optional VAT number (nil when not provided).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64     // users.id
    Email        string     // users.email
    PasswordHash string     // users.password_hash
    FirstName    string     // users.first_name
    LastName     string     // users.last_name
    Address      string     // users.address
    City         string     // users.city
    Zip          string     // users.zip
    Country      string     // users.country
    Company      *string    // users.company (nullable)
    VATNumber    *string    // users.vat_number (nullable)
    CreatedAt    time.Time  // users.created_at
    UpdatedAt    time.Time  // users.updated_at
}
